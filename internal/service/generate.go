package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mind-engage/quizhub/internal/generator"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

const (
	DefaultGenerateCount = 5
	MaxGenerateCount     = 30
	MaxTopicLen          = 200
	generatedTitlePrefix = "Quiz AI: "
)

// GenerateQuiz asks the generator for drafts and creates a private quiz
// from them. Nothing is stored unless every draft is usable.
func (s *Service) GenerateQuiz(ctx context.Context, p rbac.Principal, topic string, count int) (quiz.Quiz, []quiz.Question, error) {
	if !p.Authenticated() {
		return quiz.Quiz{}, nil, quiz.ErrUnauthenticated
	}
	topic = strings.TrimSpace(topic)
	if topic == "" || utf8.RuneCountInString(topic) > MaxTopicLen {
		return quiz.Quiz{}, nil, quiz.Invalid("topic", "must be 1 to %d characters", MaxTopicLen)
	}
	if count == 0 {
		count = DefaultGenerateCount
	}
	if count < 1 || count > MaxGenerateCount {
		return quiz.Quiz{}, nil, quiz.Invalid("count", "must be between 1 and %d", MaxGenerateCount)
	}
	if s.gen == nil {
		return quiz.Quiz{}, nil, &GenerationError{Err: generator.ErrNotConfigured}
	}

	drafts, err := s.gen.Generate(ctx, topic, count)
	if err != nil {
		s.log.Warn("generation failed", "user_id", p.UserID, "topic", topic, "err", err)
		return quiz.Quiz{}, nil, &GenerationError{Err: err}
	}
	questions := make([]quiz.Question, 0, len(drafts))
	for i, d := range drafts {
		q, err := fromDraft(d)
		if err != nil {
			return quiz.Quiz{}, nil, &GenerationError{Err: fmt.Errorf("question %d: %w", i+1, err)}
		}
		questions = append(questions, q)
	}

	title := generatedTitlePrefix + topic
	if r := []rune(title); len(r) > quiz.MaxTitleLen {
		title = string(r[:quiz.MaxTitleLen])
	}
	qz := quiz.Quiz{
		Title:               title,
		AuthorID:            p.UserID,
		Visibility:          quiz.Private,
		QuestionsCountLimit: quiz.DefaultQuestionsCountLimit,
	}
	if err := quiz.ValidateQuiz(&qz); err != nil {
		return quiz.Quiz{}, nil, err
	}
	ev := &quiz.Event{Type: syncx.QuizGenerated, Data: map[string]any{"user_id": p.UserID, "topic": topic, "count": len(questions)}}
	qz, saved, err := s.store.CreateQuizWithQuestions(ctx, qz, questions, ev)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	s.log.Info("quiz generated", "quiz_id", qz.ID, "user_id", p.UserID, "questions", len(saved))
	return qz, saved, nil
}

// fromDraft infers the type from the number of valid correct indices.
func fromDraft(d generator.Draft) (quiz.Question, error) {
	q := quiz.Question{Text: d.Text}
	for _, a := range d.Answers {
		q.Answers = append(q.Answers, quiz.Answer{Text: a})
	}
	seen := map[int]bool{}
	for _, idx := range d.CorrectIndices {
		if idx < 0 || idx >= len(q.Answers) || seen[idx] {
			continue
		}
		seen[idx] = true
		q.Answers[idx].IsCorrect = true
	}
	switch len(seen) {
	case 0:
		return quiz.Question{}, fmt.Errorf("no valid correct answer index")
	case 1:
		q.Type = quiz.Single
	default:
		q.Type = quiz.Multiple
	}
	if err := quiz.ValidateQuestion(&q); err != nil {
		return quiz.Question{}, err
	}
	return q, nil
}
