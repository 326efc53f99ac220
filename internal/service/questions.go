package service

import (
	"context"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

type AnswerInput struct {
	Text      string
	IsCorrect bool
}

type QuestionInput struct {
	Text        string
	Explanation string
	Type        quiz.QuestionType // empty means SINGLE
	Answers     []AnswerInput
}

func (in QuestionInput) question() quiz.Question {
	q := quiz.Question{Text: in.Text, Explanation: in.Explanation, Type: in.Type}
	if q.Type == "" {
		q.Type = quiz.Single
	}
	q.Answers = make([]quiz.Answer, 0, len(in.Answers))
	for _, a := range in.Answers {
		q.Answers = append(q.Answers, quiz.Answer{Text: a.Text, IsCorrect: a.IsCorrect})
	}
	return q
}

func (s *Service) ListQuestions(ctx context.Context, p rbac.Principal, quizID int64) ([]quiz.Question, error) {
	if _, err := s.loadForEdit(ctx, p, quizID); err != nil {
		return nil, err
	}
	return s.store.Questions(ctx, quizID)
}

func (s *Service) AddQuestion(ctx context.Context, p rbac.Principal, quizID int64, in QuestionInput) (quiz.Question, error) {
	if _, err := s.loadForEdit(ctx, p, quizID); err != nil {
		return quiz.Question{}, err
	}
	q := in.question()
	if err := quiz.ValidateQuestion(&q); err != nil {
		return quiz.Question{}, err
	}
	saved, err := s.store.AddQuestions(ctx, quizID, []quiz.Question{q}, nil)
	if err != nil {
		return quiz.Question{}, err
	}
	return saved[0], nil
}

// UpdateQuestion replaces text, type and the whole answer set.
func (s *Service) UpdateQuestion(ctx context.Context, p rbac.Principal, questionID int64, in QuestionInput) (quiz.Question, error) {
	cur, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return quiz.Question{}, err
	}
	if _, err := s.loadForEdit(ctx, p, cur.QuizID); err != nil {
		return quiz.Question{}, err
	}
	q := in.question()
	q.ID, q.QuizID = cur.ID, cur.QuizID
	if err := quiz.ValidateQuestion(&q); err != nil {
		return quiz.Question{}, err
	}
	return s.store.UpdateQuestion(ctx, q)
}

func (s *Service) DeleteQuestion(ctx context.Context, p rbac.Principal, questionID int64) error {
	cur, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, err := s.loadForEdit(ctx, p, cur.QuizID); err != nil {
		return err
	}
	return s.store.DeleteQuestion(ctx, questionID)
}
