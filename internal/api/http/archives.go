package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizhub/internal/rbac"
)

// GET /quizzes/{quizID}/imports/*  -> the archived upload at whatever follows /imports/
func ImportArchiveHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "quizID")
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		key := "imports/" + strconv.FormatInt(id, 10) + "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := d.Service.OpenImportArchive(r.Context(), rbac.PrincipalFromContext(r.Context()), id, key)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.Copy(w, rc)
	}
}

// GET /events?after=0&limit=100
func EventsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page, err := d.Service.ListEvents(r.Context(), rbac.PrincipalFromContext(r.Context()), after, limit)
		if err != nil {
			writeError(w, r, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}
