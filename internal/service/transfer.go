package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/quizjson"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/storage"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

type ImportResult struct {
	Imported   int    `json:"imported"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// ImportQuestions validates the whole document before writing anything and
// then adds every question in one transaction.
func (s *Service) ImportQuestions(ctx context.Context, p rbac.Principal, quizID int64, filename string, body io.Reader) (ImportResult, error) {
	if _, err := s.loadForEdit(ctx, p, quizID); err != nil {
		return ImportResult{}, err
	}
	if !quizjson.HasJSONExtension(filename) {
		return ImportResult{}, quiz.Invalid("json_file", "file must have a .json extension")
	}
	data, err := io.ReadAll(io.LimitReader(body, s.importMax+1))
	if err != nil {
		return ImportResult{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.importMax {
		return ImportResult{}, quiz.Invalid("json_file", "file is larger than %d bytes", s.importMax)
	}

	doc, err := quizjson.Parse(data)
	if err != nil {
		return ImportResult{}, err
	}
	ev := &quiz.Event{
		Type: syncx.QuestionsImported,
		Key:  strconv.FormatInt(quizID, 10),
		Data: map[string]any{"quiz_id": quizID, "user_id": p.UserID, "count": len(doc.Questions), "filename": filename},
	}
	saved, err := s.store.AddQuestions(ctx, quizID, doc.Questions, ev)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Imported: len(saved)}
	s.log.Info("questions imported", "quiz_id", quizID, "user_id", p.UserID, "count", res.Imported)

	if s.blobs != nil {
		key, err := s.blobs.Put(ctx, storage.ImportKey(quizID, s.now()), bytes.NewReader(data), "application/json")
		if err != nil {
			s.log.Warn("import archive failed", "quiz_id", quizID, "err", err)
		} else {
			res.ArchiveKey = key
		}
	}
	return res, nil
}

// ExportQuiz returns the portable document and a download filename.
func (s *Service) ExportQuiz(ctx context.Context, p rbac.Principal, quizID int64) ([]byte, string, error) {
	q, err := s.loadForEdit(ctx, p, quizID)
	if err != nil {
		return nil, "", err
	}
	qs, err := s.store.Questions(ctx, quizID)
	if err != nil {
		return nil, "", err
	}
	out, err := quizjson.Export(q.Title, qs)
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("quiz_%d.json", q.ID), nil
}

// OpenImportArchive returns an archived import document of the quiz.
// Keys belonging to another quiz are reported as not found.
func (s *Service) OpenImportArchive(ctx context.Context, p rbac.Principal, quizID int64, key string) (io.ReadCloser, error) {
	if _, err := s.loadForEdit(ctx, p, quizID); err != nil {
		return nil, err
	}
	if s.blobs == nil || !strings.HasPrefix(key, fmt.Sprintf("imports/%d/", quizID)) || strings.Contains(key, "..") {
		return nil, quiz.ErrNotFound
	}
	rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, quiz.ErrNotFound
	}
	return rc, err
}
