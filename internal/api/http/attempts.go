package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/service"
)

// submitReq is the JSON body of a submission. Answer values may be numbers
// or strings; unusable ones are dropped by the grader.
type submitReq struct {
	Answers     map[string][]any `json:"answers"`
	QuestionIDs string           `json:"question_ids"`
	TimeOver    bool             `json:"time_over"`
}

// parseSubmission accepts either a JSON body or a form post with q_<id>
// fields, the question_ids token and a time_over flag.
func parseSubmission(r *http.Request) (service.Submission, error) {
	sub := service.Submission{Answers: map[int64][]string{}}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req submitReq
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			return sub, quiz.Invalid("", "bad json")
		}
		for k, vals := range req.Answers {
			qid, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				continue
			}
			for _, v := range vals {
				sub.Answers[qid] = append(sub.Answers[qid], fmt.Sprint(v))
			}
		}
		sub.QuestionIDs = req.QuestionIDs
		sub.TimeOver = req.TimeOver
		return sub, nil
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		return sub, quiz.Invalid("", "bad form")
	}
	for key, vals := range r.Form {
		rest, ok := strings.CutPrefix(key, "q_")
		if !ok {
			continue
		}
		qid, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			continue
		}
		sub.Answers[qid] = append(sub.Answers[qid], vals...)
	}
	sub.QuestionIDs = r.Form.Get("question_ids")
	switch strings.ToLower(r.Form.Get("time_over")) {
	case "1", "true", "on", "yes":
		sub.TimeOver = true
	}
	return sub, nil
}

// GET /quizzes/{quizID}/start
func StartAttemptHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		sheet, err := d.Service.StartAttempt(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	}
}

// POST /quizzes/{quizID}/submit
func SubmitAttemptHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		sub, err := parseSubmission(r)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		res, err := d.Service.SubmitAttempt(r.Context(), rbac.PrincipalFromContext(r.Context()), id, sub)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /me/attempts
func MyAttemptsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Service.ListMyAttempts(r.Context(), rbac.PrincipalFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}/attempts
func QuizAttemptsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		list, err := d.Service.ListQuizAttempts(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}/export
func ExportQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		data, name, err := d.Service.ExportQuiz(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		w.WriteHeader(http.StatusOK)
		_, _ = bytes.NewReader(data).WriteTo(w)
	}
}

// POST /quizzes/{quizID}/import (multipart field json_file)
func ImportQuestionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		limit := d.ImportMaxBytes
		if limit <= 0 {
			limit = 5 << 20
		}
		// Leave room for multipart framing; the service enforces the file limit.
		r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
		f, hdr, err := r.FormFile("json_file")
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, d.Log, quiz.Invalid("json_file", "file is larger than %d bytes", limit))
			return
		}
		if err != nil {
			writeError(w, r, d.Log, quiz.Invalid("json_file", "a .json file upload is required"))
			return
		}
		defer f.Close()
		res, err := d.Service.ImportQuestions(r.Context(), rbac.PrincipalFromContext(r.Context()), id, hdr.Filename, f)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}
