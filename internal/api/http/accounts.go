package http

import (
	"net/http"
	"strings"

	"github.com/mind-engage/quizhub/internal/accounts"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=150,username"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type profileReq struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type tokenResp struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        accounts.User `json:"user"`
}

// POST /auth/register
func RegisterHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.EnableRegistration {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "registration is disabled"})
			return
		}
		var req registerReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		u, err := d.Accounts.CreateUser(r.Context(), accounts.User{
			Username:  strings.TrimSpace(req.Username),
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}, req.Password)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		tok, err := d.Auth.IssueJWT(u.ID, u.Username)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		d.Log.Info("user registered", "user_id", u.ID, "username", u.Username)
		writeJSON(w, http.StatusCreated, tokenResp{AccessToken: tok, TokenType: "Bearer", User: u})
	}
}

// GET /me
func MeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		u, err := d.Accounts.GetUser(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// PUT /me
func UpdateProfileHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		u, err := d.Accounts.UpdateProfile(r.Context(), accounts.User{
			ID:        p.UserID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// POST /me/password
func ChangePasswordHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		if err := d.Accounts.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /me
func DeleteAccountHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		if err := d.Accounts.DeleteUser(r.Context(), p.UserID); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		d.Log.Info("account deleted", "user_id", p.UserID)
		w.WriteHeader(http.StatusNoContent)
	}
}

type groupReq struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Members []string `json:"members" validate:"dive,required"`
}

// GET /groups
func ListGroupsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		gs, err := d.Accounts.ListOwnedGroups(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

// POST /groups
func CreateGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		g, err := d.Accounts.CreateGroup(r.Context(), p.UserID, strings.TrimSpace(req.Name), req.Members)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

// GET /groups/{groupID}
func GetGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		g, err := d.Accounts.GetGroup(r.Context(), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		if g.OwnerID != rbac.PrincipalFromContext(r.Context()).UserID {
			writeError(w, r, d.Log, quiz.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// PUT /groups/{groupID}
func UpdateGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req groupReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		g, err := d.Accounts.UpdateGroup(r.Context(), p.UserID, id, strings.TrimSpace(req.Name), req.Members)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// DELETE /groups/{groupID}
func DeleteGroupHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		if err := d.Accounts.DeleteGroup(r.Context(), p.UserID, id); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
