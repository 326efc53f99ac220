package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/quizhub/internal/generator"
)

func fakeLLM(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, url string) *generator.OpenAI {
	t.Helper()
	c, err := generator.NewOpenAI(generator.Options{APIKey: "sk-test", BaseURL: url, Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestOpenAI_Generate(t *testing.T) {
	srv := fakeLLM(t, http.StatusOK,
		`{"questions":[{"question":"2+2?","answers":["3","4","5","6"],"correct_indices":[1]}]}`)
	drafts, err := newClient(t, srv.URL).Generate(context.Background(), "math", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0].Text != "2+2?" || len(drafts[0].Answers) != 4 || drafts[0].CorrectIndices[0] != 1 {
		t.Fatalf("got %+v", drafts)
	}
}

func TestOpenAI_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		content string
	}{
		{"upstream error", http.StatusTooManyRequests, ""},
		{"content not json", http.StatusOK, "sorry, I can't"},
		{"no questions", http.StatusOK, `{"questions":[]}`},
	}
	for _, tc := range cases {
		srv := fakeLLM(t, tc.status, tc.content)
		if _, err := newClient(t, srv.URL).Generate(context.Background(), "x", 3); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	if _, err := generator.NewOpenAI(generator.Options{}); !errors.Is(err, generator.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}
