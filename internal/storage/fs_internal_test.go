package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type flakyFile struct {
	strings.Builder
	closeErr error
	closed   bool
}

func (f *flakyFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestCopyAndCloseReportsCloseError(t *testing.T) {
	diskFull := errors.New("no space left on device")
	f := &flakyFile{closeErr: diskFull}
	if err := copyAndClose(f, strings.NewReader("{}")); !errors.Is(err, diskFull) {
		t.Fatalf("want close error, got %v", err)
	}

	ok := &flakyFile{}
	if err := copyAndClose(ok, strings.NewReader("{}")); err != nil || !ok.closed || ok.String() != "{}" {
		t.Fatalf("clean copy: err=%v closed=%v body=%q", err, ok.closed, ok.String())
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("upload interrupted") }

func TestFSStorePutFailsOnReadError(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := fs.Put(context.Background(), "imports/1/a.json", brokenReader{}, "application/json")
	if err == nil || key != "" {
		t.Fatalf("want failure and no key, got key=%q err=%v", key, err)
	}
}
