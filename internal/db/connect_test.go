package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mind-engage/quizhub/internal/db"
)

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "q.db") + "?_pragma=foreign_keys(1)"
	for i := 0; i < 2; i++ {
		h, err := db.Open(ctx, db.DriverSQLite, dsn)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if err := h.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSchemaConstraints(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:constraints?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := h.ExecContext(ctx, `INSERT INTO users (username, password_hash, created_at) VALUES ('a','x',0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ExecContext(ctx, `INSERT INTO quizzes (title, author_id, visibility, created_at) VALUES ('t',1,'SECRET',0)`); err == nil {
		t.Fatal("unknown visibility accepted")
	}
	if _, err := h.ExecContext(ctx, `INSERT INTO quizzes (title, author_id, questions_count_limit, created_at) VALUES ('t',1,31,0)`); err == nil {
		t.Fatal("questions_count_limit 31 accepted")
	}
	if _, err := h.ExecContext(ctx, `INSERT INTO quizzes (title, author_id, created_at) VALUES ('t',99,0)`); err == nil {
		t.Fatal("dangling author accepted")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Driver("mysql"), ""); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
