package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizhub/internal/accounts"
	api "github.com/mind-engage/quizhub/internal/api/http"
	authmw "github.com/mind-engage/quizhub/internal/auth/middleware"
	"github.com/mind-engage/quizhub/internal/db/dbtest"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/service"
	"github.com/mind-engage/quizhub/internal/storage"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

type harness struct {
	srv   *httptest.Server
	users *accounts.SQLStore
	auth  *authmw.AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	events := syncx.NewEventRepo(db, "test")
	store := quiz.NewSQLStore(db, events)
	users := accounts.NewSQLStore(db)
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(store, users, service.Options{Blobs: blobs, Events: events, Rand: rand.New(rand.NewSource(1))})
	a := authmw.NewAuthService("test-secret", time.Hour)

	r := chi.NewRouter()
	api.Mount(r, api.Deps{
		Service:            svc,
		Accounts:           users,
		Auth:               a,
		EnableRegistration: true,
		ImportMaxBytes:     1 << 16,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, users: users, auth: a}
}

// login creates a user directly in the store and returns a bearer token.
func (h *harness) login(t *testing.T, name string) (string, int64) {
	t.Helper()
	u, err := h.users.CreateUser(context.Background(), accounts.User{Username: name}, "password-123")
	if err != nil {
		t.Fatal(err)
	}
	tok, err := h.auth.IssueJWT(u.ID, u.Username)
	if err != nil {
		t.Fatal(err)
	}
	return tok, u.ID
}

func (h *harness) do(t *testing.T, method, path, token, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return res, buf.Bytes()
}

func (h *harness) json(t *testing.T, method, path, token string, in any) (*http.Response, []byte) {
	t.Helper()
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			t.Fatal(err)
		}
	}
	return h.do(t, method, path, token, "application/json", body)
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func wantStatus(t *testing.T, res *http.Response, body []byte, code int) {
	t.Helper()
	if res.StatusCode != code {
		t.Fatalf("%s %s: want %d, got %d: %s", res.Request.Method, res.Request.URL.Path, code, res.StatusCode, body)
	}
}

type errBody struct {
	Error    string            `json:"error"`
	Field    string            `json:"field"`
	Fields   map[string]string `json:"fields"`
	Redirect string            `json:"redirect"`
}

// seedQuiz creates a quiz with one SINGLE and one MULTIPLE question.
func (h *harness) seedQuiz(t *testing.T, token, visibility string) (quiz.Quiz, []quiz.Question) {
	t.Helper()
	res, body := h.json(t, http.MethodPost, "/quizzes", token, map[string]any{"title": "Capitals", "visibility": visibility})
	wantStatus(t, res, body, http.StatusCreated)
	q := decode[quiz.Quiz](t, body)

	var qs []quiz.Question
	for _, in := range []map[string]any{
		{"text": "Capital of France?", "answers": []map[string]any{{"text": "Paris", "is_correct": true}, {"text": "Rome", "is_correct": false}}},
		{"text": "Nordic capitals", "question_type": "MULTIPLE", "answers": []map[string]any{
			{"text": "Oslo", "is_correct": true}, {"text": "Lisbon", "is_correct": false}, {"text": "Helsinki", "is_correct": true},
		}},
	} {
		res, body := h.json(t, http.MethodPost, fmt.Sprintf("/quizzes/%d/questions", q.ID), token, in)
		wantStatus(t, res, body, http.StatusCreated)
		qs = append(qs, decode[quiz.Question](t, body))
	}
	return q, qs
}

func TestRegisterLoginAndProfile(t *testing.T) {
	h := newHarness(t)

	res, body := h.json(t, http.MethodPost, "/auth/register", "", map[string]any{"username": "a b", "password": "short"})
	wantStatus(t, res, body, http.StatusBadRequest)
	eb := decode[errBody](t, body)
	if eb.Fields["username"] != "username" || eb.Fields["password"] != "min" {
		t.Fatalf("unexpected field errors: %+v", eb.Fields)
	}

	res, body = h.json(t, http.MethodPost, "/auth/register", "", map[string]any{"username": "carol", "password": "correct-horse", "email": "c@example.com"})
	wantStatus(t, res, body, http.StatusCreated)

	res, body = h.json(t, http.MethodPost, "/auth/register", "", map[string]any{"username": "carol", "password": "correct-horse"})
	wantStatus(t, res, body, http.StatusConflict)

	res, body = h.json(t, http.MethodPost, "/auth/login", "", map[string]any{"username": "carol", "password": "wrong-password"})
	wantStatus(t, res, body, http.StatusUnauthorized)
	res, body = h.json(t, http.MethodPost, "/auth/login", "", map[string]any{"username": "carol", "password": "correct-horse"})
	wantStatus(t, res, body, http.StatusOK)
	tok := decode[struct {
		AccessToken string `json:"access_token"`
	}](t, body).AccessToken

	res, body = h.json(t, http.MethodPut, "/me", tok, map[string]any{"email": "new@example.com", "first_name": "Carol"})
	wantStatus(t, res, body, http.StatusOK)
	res, body = h.json(t, http.MethodGet, "/me", tok, nil)
	wantStatus(t, res, body, http.StatusOK)
	if u := decode[accounts.User](t, body); u.Email != "new@example.com" || u.FirstName != "Carol" {
		t.Fatalf("profile not updated: %+v", u)
	}

	res, body = h.json(t, http.MethodPost, "/me/password", tok, map[string]any{"old_password": "nope-nope", "new_password": "another-pass"})
	wantStatus(t, res, body, http.StatusForbidden)
	res, body = h.json(t, http.MethodPost, "/me/password", tok, map[string]any{"old_password": "correct-horse", "new_password": "another-pass"})
	wantStatus(t, res, body, http.StatusNoContent)

	res, body = h.json(t, http.MethodDelete, "/me", tok, nil)
	wantStatus(t, res, body, http.StatusNoContent)
	res, body = h.json(t, http.MethodGet, "/me", tok, nil)
	wantStatus(t, res, body, http.StatusUnauthorized)
}

func TestAnonymousGates(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	priv, _ := h.seedQuiz(t, alice, "PRIVATE")
	pub, _ := h.seedQuiz(t, alice, "PUBLIC")

	res, body := h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d", priv.ID), "", nil)
	wantStatus(t, res, body, http.StatusForbidden)
	if eb := decode[errBody](t, body); eb.Redirect != "/" {
		t.Fatalf("view denial should redirect home: %+v", eb)
	}

	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d", pub.ID), "", nil)
	wantStatus(t, res, body, http.StatusOK)
	detail := decode[struct {
		QuestionCount int  `json:"question_count"`
		CanEdit       bool `json:"can_edit"`
	}](t, body)
	if detail.QuestionCount != 2 || detail.CanEdit {
		t.Fatalf("anonymous detail: %+v", detail)
	}

	res, body = h.json(t, http.MethodPost, "/quizzes", "", map[string]any{"title": "x"})
	wantStatus(t, res, body, http.StatusUnauthorized)

	res, body = h.json(t, http.MethodGet, "/quizzes/abc", "", nil)
	wantStatus(t, res, body, http.StatusNotFound)

	res, body = h.json(t, http.MethodGet, "/quizzes?q=capit", "", nil)
	wantStatus(t, res, body, http.StatusOK)
	if list := decode[[]quiz.Quiz](t, body); len(list) != 1 || list[0].ID != pub.ID {
		t.Fatalf("public listing: %+v", list)
	}

	res, body = h.do(t, http.MethodGet, "/quizzes", "garbage", "", nil)
	wantStatus(t, res, body, http.StatusUnauthorized)
}

func TestEditDeniedAndSharing(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	bob, _ := h.login(t, "bob")
	q, qs := h.seedQuiz(t, alice, "PRIVATE")

	res, body := h.json(t, http.MethodPut, fmt.Sprintf("/quizzes/%d", q.ID), bob, map[string]any{"title": "Hijacked"})
	wantStatus(t, res, body, http.StatusForbidden)
	if eb := decode[errBody](t, body); eb.Error != "access denied" || eb.Redirect != "" {
		t.Fatalf("edit denial: %+v", eb)
	}

	res, body = h.json(t, http.MethodPut, fmt.Sprintf("/quizzes/%d/permissions/users", q.ID), alice, map[string]any{"username": "bob", "role": "OWNER"})
	wantStatus(t, res, body, http.StatusBadRequest)
	res, body = h.json(t, http.MethodPut, fmt.Sprintf("/quizzes/%d/permissions/users", q.ID), alice, map[string]any{"username": "alice", "role": "EDITOR"})
	wantStatus(t, res, body, http.StatusBadRequest)

	res, body = h.json(t, http.MethodPost, "/groups", alice, map[string]any{"name": "editors", "members": []string{"bob"}})
	wantStatus(t, res, body, http.StatusCreated)
	g := decode[accounts.Group](t, body)
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/groups/%d", g.ID), bob, nil)
	wantStatus(t, res, body, http.StatusNotFound)

	res, body = h.json(t, http.MethodPut, fmt.Sprintf("/quizzes/%d/permissions/groups", q.ID), alice, map[string]any{"group_id": g.ID, "role": "EDITOR"})
	wantStatus(t, res, body, http.StatusOK)

	res, body = h.json(t, http.MethodPut, fmt.Sprintf("/questions/%d", qs[0].ID), bob, map[string]any{
		"text": "Capital of Italy?", "answers": []map[string]any{{"text": "Paris", "is_correct": false}, {"text": "Rome", "is_correct": true}},
	})
	wantStatus(t, res, body, http.StatusOK)

	res, body = h.json(t, http.MethodGet, "/me/quizzes", bob, nil)
	wantStatus(t, res, body, http.StatusOK)
	if dash := decode[quiz.Dashboard](t, body); len(dash.Editable) != 1 || len(dash.Shared) != 1 || len(dash.Authored) != 0 {
		t.Fatalf("dashboard: %+v", dash)
	}

	// Editors still cannot delete the quiz or manage sharing.
	res, body = h.json(t, http.MethodDelete, fmt.Sprintf("/quizzes/%d", q.ID), bob, nil)
	wantStatus(t, res, body, http.StatusForbidden)
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/permissions", q.ID), bob, nil)
	wantStatus(t, res, body, http.StatusForbidden)

	res, body = h.json(t, http.MethodDelete, fmt.Sprintf("/quizzes/%d/permissions/groups/%d", q.ID, g.ID), alice, nil)
	wantStatus(t, res, body, http.StatusNoContent)
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/questions", q.ID), bob, nil)
	wantStatus(t, res, body, http.StatusForbidden)
}

func TestTakeAndSubmit(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	q, qs := h.seedQuiz(t, alice, "PUBLIC")

	res, body := h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/start", q.ID), "", nil)
	wantStatus(t, res, body, http.StatusOK)
	sheet := decode[service.AttemptSheet](t, body)
	if len(sheet.Questions) != 2 || sheet.QuestionIDs == "" {
		t.Fatalf("sheet: %+v", sheet)
	}
	for _, sq := range sheet.Questions {
		for _, a := range sq.Answers {
			if a.IsCorrect != nil {
				t.Fatal("correctness leaked without instant feedback")
			}
		}
	}

	// JSON submission: first question right, second only half right.
	sub := map[string]any{
		"question_ids": sheet.QuestionIDs,
		"answers": map[string]any{
			fmt.Sprint(qs[0].ID): []any{qs[0].Answers[0].ID},
			fmt.Sprint(qs[1].ID): []any{fmt.Sprint(qs[1].Answers[0].ID)},
			"bogus":              []any{1},
		},
	}
	res, body = h.json(t, http.MethodPost, fmt.Sprintf("/quizzes/%d/submit", q.ID), alice, sub)
	wantStatus(t, res, body, http.StatusOK)
	result := decode[service.AttemptResult](t, body)
	if result.CorrectCount != 1 || result.Total != 2 || result.Score != 50 {
		t.Fatalf("json submit: %+v", result)
	}

	// Form submission from an anonymous taker, all right, time over.
	form := url.Values{}
	form.Set("question_ids", sheet.QuestionIDs)
	form.Add(fmt.Sprintf("q_%d", qs[0].ID), fmt.Sprint(qs[0].Answers[0].ID))
	form.Add(fmt.Sprintf("q_%d", qs[1].ID), fmt.Sprint(qs[1].Answers[0].ID))
	form.Add(fmt.Sprintf("q_%d", qs[1].ID), fmt.Sprint(qs[1].Answers[2].ID))
	form.Set("time_over", "1")
	res, body = h.do(t, http.MethodPost, fmt.Sprintf("/quizzes/%d/submit", q.ID), "", "application/x-www-form-urlencoded", []byte(form.Encode()))
	wantStatus(t, res, body, http.StatusOK)
	result = decode[service.AttemptResult](t, body)
	if result.Score != 100 || !result.TimeOver || result.Attempt.UserID != nil {
		t.Fatalf("form submit: %+v", result)
	}

	res, body = h.json(t, http.MethodGet, "/me/attempts", alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	if mine := decode[[]quiz.Attempt](t, body); len(mine) != 1 {
		t.Fatalf("my attempts: %+v", mine)
	}
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/attempts", q.ID), alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	if all := decode[[]quiz.Attempt](t, body); len(all) != 2 {
		t.Fatalf("quiz attempts: %+v", all)
	}

	res, body = h.json(t, http.MethodGet, "/events?after=0", alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	recorded := 0
	for _, ev := range decode[service.EventPage](t, body).Events {
		if ev.Type == syncx.AttemptRecorded {
			recorded++
		}
	}
	if recorded != 2 {
		t.Fatalf("want 2 attempt events, got %d", recorded)
	}
}

func TestEventFeedIsScopedToEditableQuizzes(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	mallory, _ := h.login(t, "mallory")
	q, qs := h.seedQuiz(t, alice, "PRIVATE")

	sub := map[string]any{"answers": map[string]any{fmt.Sprint(qs[0].ID): []any{qs[0].Answers[0].ID}}}
	res, body := h.json(t, http.MethodPost, fmt.Sprintf("/quizzes/%d/submit", q.ID), alice, sub)
	wantStatus(t, res, body, http.StatusOK)
	res, body = h.json(t, http.MethodPut, fmt.Sprintf("/quizzes/%d/permissions/users", q.ID), alice, map[string]any{"username": "mallory", "role": "VIEWER"})
	wantStatus(t, res, body, http.StatusOK)

	res, body = h.json(t, http.MethodGet, "/events", alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	own := decode[service.EventPage](t, body)
	if len(own.Events) != 2 || own.Next != own.Events[1].Seq {
		t.Fatalf("author feed: %+v", own)
	}

	// A viewer can open the quiz but must not see attempts or sharing changes.
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d", q.ID), mallory, nil)
	wantStatus(t, res, body, http.StatusOK)
	res, body = h.json(t, http.MethodGet, "/events", mallory, nil)
	wantStatus(t, res, body, http.StatusOK)
	other := decode[service.EventPage](t, body)
	if len(other.Events) != 0 {
		t.Fatalf("viewer saw foreign events: %+v", other.Events)
	}
	if other.Next != own.Next {
		t.Fatalf("cursor should advance past hidden events: %d vs %d", other.Next, own.Next)
	}

	res, body = h.json(t, http.MethodGet, "/events", "", nil)
	wantStatus(t, res, body, http.StatusUnauthorized)
}

func TestTakeEmptyQuizRedirectsToDetail(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	res, body := h.json(t, http.MethodPost, "/quizzes", alice, map[string]any{"title": "Empty", "visibility": "PUBLIC"})
	wantStatus(t, res, body, http.StatusCreated)
	q := decode[quiz.Quiz](t, body)

	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/start", q.ID), "", nil)
	wantStatus(t, res, body, http.StatusConflict)
	if eb := decode[errBody](t, body); eb.Redirect != fmt.Sprintf("/quizzes/%d", q.ID) {
		t.Fatalf("redirect: %+v", eb)
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestImportExportOverHTTP(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	src, _ := h.seedQuiz(t, alice, "PRIVATE")

	res, body := h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/export", src.ID), alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	if cd := res.Header.Get("Content-Disposition"); !strings.Contains(cd, fmt.Sprintf("quiz_%d.json", src.ID)) {
		t.Fatalf("content disposition %q", cd)
	}
	exported := body

	res, body = h.json(t, http.MethodPost, "/quizzes", alice, map[string]any{"title": "Copy"})
	wantStatus(t, res, body, http.StatusCreated)
	dst := decode[quiz.Quiz](t, body)
	importPath := fmt.Sprintf("/quizzes/%d/import", dst.ID)

	payload, ct := multipartUpload(t, "json_file", "quiz.txt", exported)
	res, body = h.do(t, http.MethodPost, importPath, alice, ct, payload)
	wantStatus(t, res, body, http.StatusBadRequest)

	bad := []byte(`{"questions":[{"text":"ok","answers":[{"text":"a","is_correct":true},{"text":"b","is_correct":false}]},{"text":"broken","answers":[{"text":"only"}]}]}`)
	payload, ct = multipartUpload(t, "json_file", "bad.json", bad)
	res, body = h.do(t, http.MethodPost, importPath, alice, ct, payload)
	wantStatus(t, res, body, http.StatusBadRequest)
	if eb := decode[errBody](t, body); !strings.Contains(eb.Error, "question 2") {
		t.Fatalf("error should locate the failing question: %q", eb.Error)
	}

	payload, ct = multipartUpload(t, "json_file", "good.JSON", exported)
	res, body = h.do(t, http.MethodPost, importPath, alice, ct, payload)
	wantStatus(t, res, body, http.StatusCreated)
	imp := decode[service.ImportResult](t, body)
	if imp.Imported != 2 || imp.ArchiveKey == "" {
		t.Fatalf("import result: %+v", imp)
	}

	rest := strings.TrimPrefix(imp.ArchiveKey, fmt.Sprintf("imports/%d/", dst.ID))
	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/imports/%s", dst.ID, rest), alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	if !bytes.Equal(body, exported) {
		t.Fatal("archived document differs from the upload")
	}

	payload, ct = multipartUpload(t, "json_file", "huge.json", bytes.Repeat([]byte(" "), 1<<17))
	res, body = h.do(t, http.MethodPost, importPath, alice, ct, payload)
	wantStatus(t, res, body, http.StatusBadRequest)

	res, body = h.json(t, http.MethodGet, fmt.Sprintf("/quizzes/%d/questions", dst.ID), alice, nil)
	wantStatus(t, res, body, http.StatusOK)
	if qs := decode[[]quiz.Question](t, body); len(qs) != 2 {
		t.Fatalf("want 2 questions after one good import, got %d", len(qs))
	}
}

func TestQuestionValidation(t *testing.T) {
	h := newHarness(t)
	alice, _ := h.login(t, "alice")
	q, _ := h.seedQuiz(t, alice, "PRIVATE")
	path := fmt.Sprintf("/quizzes/%d/questions", q.ID)

	res, body := h.json(t, http.MethodPost, path, alice, map[string]any{
		"text": "Two right", "answers": []map[string]any{{"text": "a", "is_correct": true}, {"text": "b", "is_correct": true}},
	})
	wantStatus(t, res, body, http.StatusBadRequest)

	res, body = h.json(t, http.MethodPost, path, alice, map[string]any{
		"text": "One answer", "answers": []map[string]any{{"text": "a", "is_correct": true}},
	})
	wantStatus(t, res, body, http.StatusBadRequest)
	if eb := decode[errBody](t, body); eb.Fields["answers"] != "min" {
		t.Fatalf("fields: %+v", eb.Fields)
	}

	res, body = h.json(t, http.MethodPost, "/quizzes/generate", alice, map[string]any{"topic": "Go"})
	wantStatus(t, res, body, http.StatusServiceUnavailable)
}
