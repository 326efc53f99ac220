package syncx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mind-engage/quizhub/internal/db/dbtest"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

func TestEventRepo_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := syncx.NewEventRepo(db, "")

	for i := 1; i <= 3; i++ {
		if err := repo.Append(ctx, nil, syncx.AttemptRecorded, fmt.Sprint(i), map[string]int{"score": i * 10}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].SiteID != "local" || all[0].Key != "1" {
		t.Fatalf("unexpected events: %+v", all)
	}
	var data map[string]int
	if err := json.Unmarshal([]byte(all[2].DataJSON), &data); err != nil || data["score"] != 30 {
		t.Fatalf("payload %q: %v", all[2].DataJSON, err)
	}

	rest, err := repo.List(ctx, all[0].Seq, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Seq != all[1].Seq {
		t.Fatalf("paging after %d: %+v", all[0].Seq, rest)
	}
}

func TestEventRepo_AppendInsideTx(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := syncx.NewEventRepo(db, "site-a")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, tx, syncx.PermissionChanged, "9", map[string]any{"role": "VIEWER"}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	list, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("rolled back event visible: %+v", list)
	}
}

func TestEventRepo_RejectsUnencodablePayload(t *testing.T) {
	repo := syncx.NewEventRepo(dbtest.Open(t), "x")
	if err := repo.Append(context.Background(), nil, syncx.QuizGenerated, "1", make(chan int)); err == nil {
		t.Fatal("channel payload accepted")
	}
}
