package storage_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/quizhub/internal/storage"
)

func TestFSStore_PutGet(t *testing.T) {
	ctx := context.Background()
	fs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := storage.ImportKey(7, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "imports/7/2025/01/31/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := fs.Put(ctx, key, strings.NewReader(`{"questions":[]}`), "application/json"); err != nil {
		t.Fatal(err)
	}
	rc, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != `{"questions":[]}` {
		t.Fatalf("got %q", b)
	}
}

func TestFSStore_MissingKey(t *testing.T) {
	fs, _ := storage.NewFSStore(t.TempDir())
	if _, err := fs.Get(context.Background(), "imports/1/nope.json"); !errors.Is(err, storage.ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}
}

func TestFSStore_RejectsEscapes(t *testing.T) {
	fs, _ := storage.NewFSStore(t.TempDir())
	if _, err := fs.Put(context.Background(), "", strings.NewReader("x"), ""); err == nil {
		t.Fatal("empty key accepted")
	}
}

// fakeS3 keeps objects in memory and speaks just enough of the path-style REST API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(b)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		v, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store_PutGet(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	st, err := storage.NewS3Store(storage.S3Options{
		Bucket: "quiz-archive", Region: "eu-west-2", Endpoint: srv.URL,
		AccessKey: "AKID", SecretKey: "SECRET",
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := st.Put(ctx, "imports/1/a.json", strings.NewReader("payload"), "application/json"); err != nil {
		t.Fatal(err)
	}
	if got := fake.objects["/quiz-archive/imports/1/a.json"]; got != "payload" {
		t.Fatalf("stored %q, objects=%v", got, fake.objects)
	}
	rc, err := st.Get(ctx, "imports/1/a.json")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "payload" {
		t.Fatalf("got %q", b)
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := storage.NewS3Store(storage.S3Options{Region: "eu-west-2"}); err == nil {
		t.Fatal("expected error")
	}
}
