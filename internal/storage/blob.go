// Package storage archives uploaded documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

var ErrNotExist = errors.New("blob does not exist")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)                           // ErrNotExist for a missing key
}

// ImportKey builds a unique archive key for a quiz import,
// e.g. imports/42/2025/01/31/<uuid>.json.
func ImportKey(quizID int64, now time.Time) string {
	return path.Join("imports", fmt.Sprint(quizID), now.UTC().Format("2006/01/02"), uuid.NewString()+".json")
}
