package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mind-engage/quizhub/internal/accounts"
	auth "github.com/mind-engage/quizhub/internal/auth/middleware"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

type fakeUsers struct {
	users map[int64]accounts.User
	pass  map[string]string
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (accounts.User, error) {
	u, ok := f.users[id]
	if !ok {
		return accounts.User{}, quiz.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (accounts.User, error) {
	for _, u := range f.users {
		if u.Username == username && f.pass[username] == password {
			return u, nil
		}
	}
	return accounts.User{}, accounts.ErrBadCredentials
}

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{"id": p.UserID, "username": p.Username})
	})
}

func TestIssueAndParse(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT(42, "alice")
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	p, err := c.Principal()
	if err != nil || p.UserID != 42 || p.Username != "alice" {
		t.Fatalf("principal = %+v, %v", p, err)
	}

	other := auth.NewAuthService("other-secret", time.Hour)
	if _, err := other.Parse(tok); err == nil {
		t.Fatal("token verified with the wrong key")
	}
}

func TestAuthenticate(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	h := auth.Authenticate(a)(whoami())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || !bytes.Contains(rr.Body.Bytes(), []byte(`"id":0`)) {
		t.Fatalf("anonymous: %d %s", rr.Code, rr.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rr.Code)
	}

	tok, _ := a.IssueJWT(7, "bob")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !bytes.Contains(rr.Body.Bytes(), []byte(`"id":7`)) {
		t.Fatalf("valid token: %d %s", rr.Code, rr.Body)
	}
}

func TestAttachUserFromDB(t *testing.T) {
	users := &fakeUsers{users: map[int64]accounts.User{7: {ID: 7, Username: "bob-renamed"}}}
	h := auth.AttachUserFromDB(users)(whoami())

	for id, want := range map[int64]int{7: http.StatusOK, 8: http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(rbac.WithPrincipal(req.Context(), rbac.Principal{UserID: id, Username: "bob"}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("user %d: got %d, want %d", id, rr.Code, want)
		}
		if id == 7 && !bytes.Contains(rr.Body.Bytes(), []byte("bob-renamed")) {
			t.Fatalf("username not refreshed: %s", rr.Body)
		}
	}
}

func TestLoginHandler(t *testing.T) {
	a := auth.NewAuthService("secret", time.Hour)
	users := &fakeUsers{
		users: map[int64]accounts.User{3: {ID: 3, Username: "carol"}},
		pass:  map[string]string{"carol": "pw-123456"},
	}
	h := auth.LoginHandler(a, users)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"username":"carol","password":"wrong"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"username":"carol","password":"pw-123456"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&out)
	c, err := a.Parse(out.AccessToken)
	if err != nil || c.Subject != "3" {
		t.Fatalf("issued token: %+v %v", c, err)
	}
}
