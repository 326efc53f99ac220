package http

import (
	"net/http"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/service"
)

type answerReq struct {
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

type questionReq struct {
	Text         string      `json:"text" validate:"required"`
	Explanation  string      `json:"explanation"`
	QuestionType string      `json:"question_type" validate:"omitempty,oneof=SINGLE MULTIPLE"`
	Answers      []answerReq `json:"answers" validate:"required,min=2,max=10,dive"`
}

func (q questionReq) input() service.QuestionInput {
	in := service.QuestionInput{Text: q.Text, Explanation: q.Explanation, Type: quiz.QuestionType(q.QuestionType)}
	for _, a := range q.Answers {
		in.Answers = append(in.Answers, service.AnswerInput{Text: a.Text, IsCorrect: a.IsCorrect})
	}
	return in
}

// GET /quizzes/{quizID}/questions
func ListQuestionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		qs, err := d.Service.ListQuestions(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// POST /quizzes/{quizID}/questions
func AddQuestionHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req questionReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		q, err := d.Service.AddQuestion(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.input())
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /questions/{questionID}
func UpdateQuestionHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "questionID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		var req questionReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		q, err := d.Service.UpdateQuestion(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.input())
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /questions/{questionID}
func DeleteQuestionHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "questionID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		if err := d.Service.DeleteQuestion(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
