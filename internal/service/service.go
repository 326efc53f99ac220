// Package service ties the permission evaluator, grading engine and import
// validator to storage. Every exported method authorizes first, then
// computes, then persists in a single transaction.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/mind-engage/quizhub/internal/generator"
	"github.com/mind-engage/quizhub/internal/grading"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/storage"
)

// Directory resolves users and groups that live outside the quiz store.
type Directory interface {
	UserIDByUsername(ctx context.Context, username string) (int64, error)
	GroupOwner(ctx context.Context, groupID int64) (int64, error)
}

type Options struct {
	Generator      generator.Generator // nil disables AI generation
	Blobs          storage.BlobStore   // nil disables import archiving
	Events         EventLister         // nil leaves the event feed empty
	Logger         *slog.Logger
	ImportMaxBytes int64
	Rand           *rand.Rand
}

type Service struct {
	store     quiz.Store
	checker   *rbac.Checker
	grader    grading.Grader
	dir       Directory
	gen       generator.Generator
	blobs     storage.BlobStore
	events    EventLister
	log       *slog.Logger
	importMax int64
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(store quiz.Store, dir Directory, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = 5 << 20
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		store:     store,
		checker:   rbac.NewChecker(store),
		grader:    grading.NewDefaultGrader(),
		dir:       dir,
		gen:       opts.Generator,
		blobs:     opts.Blobs,
		events:    opts.Events,
		log:       opts.Logger,
		importMax: opts.ImportMaxBytes,
		now:       time.Now,
		rng:       opts.Rand,
	}
}

// withRand serializes access to the shared generator.
func (s *Service) withRand(fn func(rng *rand.Rand)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	fn(s.rng)
}

// ---- authorization helpers ----

func (s *Service) loadForView(ctx context.Context, p rbac.Principal, quizID int64) (quiz.Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	ok, err := s.checker.CanView(ctx, p, q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if !ok {
		return quiz.Quiz{}, quiz.ErrViewDenied
	}
	return q, nil
}

func (s *Service) loadForEdit(ctx context.Context, p rbac.Principal, quizID int64) (quiz.Quiz, error) {
	if !p.Authenticated() {
		return quiz.Quiz{}, quiz.ErrUnauthenticated
	}
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	ok, err := s.checker.CanEdit(ctx, p, q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if !ok {
		return quiz.Quiz{}, quiz.ErrEditDenied
	}
	return q, nil
}

func (s *Service) loadForAuthor(ctx context.Context, p rbac.Principal, quizID int64) (quiz.Quiz, error) {
	if !p.Authenticated() {
		return quiz.Quiz{}, quiz.ErrUnauthenticated
	}
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if !rbac.IsAuthor(p, q) {
		return quiz.Quiz{}, quiz.ErrNotAuthor
	}
	return q, nil
}

// GenerationError wraps any failure of the external generator.
type GenerationError struct{ Err error }

func (e *GenerationError) Error() string { return "quiz generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err came from the AI generator.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
