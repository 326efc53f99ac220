package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/quizhub/internal/accounts"
	"github.com/mind-engage/quizhub/internal/generator"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/quizjson"
	"github.com/mind-engage/quizhub/internal/service"
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// decodeJSON reads the body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return quiz.Invalid("", "bad json")
	}
	return validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error    string            `json:"error"`
	Field    string            `json:"field,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		inv  *quiz.InvalidError
		ve   *quizjson.ValidationError
		vErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &vErr):
		fields := make(map[string]string, len(vErr))
		for _, fe := range vErr {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
	case errors.As(err, &inv):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: inv.Error(), Field: inv.Field})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error()})
	case errors.Is(err, quiz.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, accounts.ErrBadCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, quiz.ErrViewDenied):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Redirect: "/"})
	case errors.Is(err, quiz.ErrEditDenied),
		errors.Is(err, quiz.ErrNotAuthor),
		errors.Is(err, accounts.ErrNotOwner),
		errors.Is(err, accounts.ErrWrongPassword):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, quiz.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, quiz.ErrNoQuestions):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Redirect: "/quizzes/" + chi.URLParam(r, "quizID")})
	case errors.Is(err, accounts.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Field: "username"})
	case errors.Is(err, generator.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quiz generation is not configured"})
	case service.IsGenerationError(err):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: %w", name, quiz.ErrNotFound)
	}
	return id, nil
}
