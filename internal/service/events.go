package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

// EventLister reads the domain event log. syncx.EventRepo satisfies it.
type EventLister interface {
	List(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// EventPage is one page of the feed. Next is the cursor for the following
// request; it advances past events the caller was not allowed to see.
type EventPage struct {
	Events []syncx.Event `json:"events"`
	Next   int64         `json:"next"`
}

// ListEvents returns the events of quizzes the principal can edit.
func (s *Service) ListEvents(ctx context.Context, p rbac.Principal, after int64, limit int) (EventPage, error) {
	if !p.Authenticated() {
		return EventPage{}, quiz.ErrUnauthenticated
	}
	page := EventPage{Events: []syncx.Event{}, Next: after}
	if s.events == nil {
		return page, nil
	}
	raw, err := s.events.List(ctx, after, limit)
	if err != nil {
		return EventPage{}, err
	}
	allowed := map[int64]bool{}
	for _, e := range raw {
		page.Next = e.Seq
		quizID, ok := eventQuizID(e)
		if !ok {
			continue
		}
		ok, seen := allowed[quizID]
		if !seen {
			ok, err = s.canEditQuiz(ctx, p, quizID)
			if err != nil {
				return EventPage{}, err
			}
			allowed[quizID] = ok
		}
		if ok {
			page.Events = append(page.Events, e)
		}
	}
	return page, nil
}

func (s *Service) canEditQuiz(ctx context.Context, p rbac.Principal, quizID int64) (bool, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if errors.Is(err, quiz.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.checker.CanEdit(ctx, p, q)
}

// eventQuizID finds the quiz an event belongs to: the payload's quiz_id
// when present, otherwise the event key.
func eventQuizID(e syncx.Event) (int64, bool) {
	var body struct {
		QuizID *int64 `json:"quiz_id"`
	}
	if json.Unmarshal([]byte(e.DataJSON), &body) == nil && body.QuizID != nil {
		return *body.QuizID, true
	}
	if e.Type == syncx.AttemptRecorded {
		return 0, false
	}
	id, err := strconv.ParseInt(e.Key, 10, 64)
	return id, err == nil && id > 0
}
