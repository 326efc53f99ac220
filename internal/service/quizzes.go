package service

import (
	"context"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

// QuizInput carries quiz settings. Nil fields take defaults on create and
// keep their stored value on update.
type QuizInput struct {
	Title               string
	Visibility          *quiz.Visibility
	TimeLimit           *int
	QuestionsCountLimit *int
	InstantFeedback     *bool
}

func (in QuizInput) apply(q *quiz.Quiz) {
	q.Title = in.Title
	if in.Visibility != nil {
		q.Visibility = *in.Visibility
	}
	if in.TimeLimit != nil {
		q.TimeLimit = *in.TimeLimit
	}
	if in.QuestionsCountLimit != nil {
		q.QuestionsCountLimit = *in.QuestionsCountLimit
	}
	if in.InstantFeedback != nil {
		q.InstantFeedback = *in.InstantFeedback
	}
}

// QuizDetail is a quiz as seen by one principal.
type QuizDetail struct {
	quiz.Quiz
	QuestionCount int  `json:"question_count"`
	CanEdit       bool `json:"can_edit"`
	IsAuthor      bool `json:"is_author"`
}

func (s *Service) ListPublic(ctx context.Context, titleQuery string) ([]quiz.Quiz, error) {
	return s.store.ListPublic(ctx, titleQuery)
}

func (s *Service) Dashboard(ctx context.Context, p rbac.Principal) (quiz.Dashboard, error) {
	if !p.Authenticated() {
		return quiz.Dashboard{}, quiz.ErrUnauthenticated
	}
	return s.store.Dashboard(ctx, p.UserID)
}

func (s *Service) GetQuiz(ctx context.Context, p rbac.Principal, id int64) (QuizDetail, error) {
	q, err := s.loadForView(ctx, p, id)
	if err != nil {
		return QuizDetail{}, err
	}
	n, err := s.store.CountQuestions(ctx, id)
	if err != nil {
		return QuizDetail{}, err
	}
	canEdit, err := s.checker.CanEdit(ctx, p, q)
	if err != nil {
		return QuizDetail{}, err
	}
	return QuizDetail{Quiz: q, QuestionCount: n, CanEdit: canEdit, IsAuthor: rbac.IsAuthor(p, q)}, nil
}

func (s *Service) CreateQuiz(ctx context.Context, p rbac.Principal, in QuizInput) (quiz.Quiz, error) {
	if !p.Authenticated() {
		return quiz.Quiz{}, quiz.ErrUnauthenticated
	}
	q := quiz.Quiz{
		AuthorID:            p.UserID,
		Visibility:          quiz.Private,
		QuestionsCountLimit: quiz.DefaultQuestionsCountLimit,
	}
	in.apply(&q)
	if err := quiz.ValidateQuiz(&q); err != nil {
		return quiz.Quiz{}, err
	}
	q, err := s.store.CreateQuiz(ctx, q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	s.log.Info("quiz created", "quiz_id", q.ID, "author_id", p.UserID)
	return q, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, p rbac.Principal, id int64, in QuizInput) (quiz.Quiz, error) {
	q, err := s.loadForEdit(ctx, p, id)
	if err != nil {
		return quiz.Quiz{}, err
	}
	in.apply(&q)
	if err := quiz.ValidateQuiz(&q); err != nil {
		return quiz.Quiz{}, err
	}
	if err := s.store.UpdateQuiz(ctx, q); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, p rbac.Principal, id int64) error {
	if _, err := s.loadForAuthor(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.log.Info("quiz deleted", "quiz_id", id, "author_id", p.UserID)
	return nil
}
