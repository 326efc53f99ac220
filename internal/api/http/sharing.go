package http

import (
	"net/http"

	"github.com/mind-engage/quizhub/internal/rbac"
)

type grantUserReq struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=VIEWER EDITOR"`
}

type grantGroupReq struct {
	GroupID int64  `json:"group_id" validate:"required,gt=0"`
	Role    string `json:"role" validate:"required,oneof=VIEWER EDITOR"`
}

// GET /quizzes/{quizID}/permissions
func ListPermissionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		perms, err := d.Service.ListPermissions(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	}
}

// PUT /quizzes/{quizID}/permissions/users
func GrantUserHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req grantUserReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		perm, err := d.Service.GrantUser(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Username, req.Role)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, perm)
	}
}

// DELETE /quizzes/{quizID}/permissions/users/{userID}
func RevokeUserHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		userID, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		if err := d.Service.RevokeUser(r.Context(), rbac.PrincipalFromContext(r.Context()), id, userID); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PUT /quizzes/{quizID}/permissions/groups
func GrantGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req grantGroupReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		perm, err := d.Service.GrantGroup(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.GroupID, req.Role)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, perm)
	}
}

// DELETE /quizzes/{quizID}/permissions/groups/{groupID}
func RevokeGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		if err := d.Service.RevokeGroup(r.Context(), rbac.PrincipalFromContext(r.Context()), id, groupID); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type generateReq struct {
	Topic string `json:"topic" validate:"required,max=200"`
	Count int    `json:"count" validate:"omitempty,min=1,max=30"`
}

type generatedQuiz struct {
	Quiz      any `json:"quiz"`
	Questions any `json:"questions"`
}

// POST /quizzes/generate
func GenerateQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		q, qs, err := d.Service.GenerateQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), req.Topic, req.Count)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, generatedQuiz{Quiz: q, Questions: qs})
	}
}
