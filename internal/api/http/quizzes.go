package http

import (
	"net/http"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/service"
)

type quizReq struct {
	Title               string  `json:"title" validate:"required,max=255"`
	Visibility          *string `json:"visibility" validate:"omitempty,oneof=PUBLIC PRIVATE"`
	TimeLimit           *int    `json:"time_limit" validate:"omitempty,min=0"`
	QuestionsCountLimit *int    `json:"questions_count_limit" validate:"omitempty,min=1,max=30"`
	InstantFeedback     *bool   `json:"instant_feedback"`
}

func (q quizReq) input() service.QuizInput {
	in := service.QuizInput{
		Title:               q.Title,
		TimeLimit:           q.TimeLimit,
		QuestionsCountLimit: q.QuestionsCountLimit,
		InstantFeedback:     q.InstantFeedback,
	}
	if q.Visibility != nil {
		v := quiz.Visibility(*q.Visibility)
		in.Visibility = &v
	}
	return in
}

// GET /quizzes?q=
func ListPublicQuizzesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Service.ListPublic(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /me/quizzes
func DashboardHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := d.Service.Dashboard(r.Context(), rbac.PrincipalFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		detail, err := d.Service.GetQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// POST /quizzes
func CreateQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		q, err := d.Service.CreateQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), req.input())
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /quizzes/{quizID}
func UpdateQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req quizReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		q, err := d.Service.UpdateQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.input())
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		if err := d.Service.DeleteQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
