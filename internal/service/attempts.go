package service

import (
	"context"
	"math/rand"

	"github.com/mind-engage/quizhub/internal/grading"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

type SheetAnswer struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	// IsCorrect is only revealed on instant-feedback quizzes.
	IsCorrect *bool `json:"is_correct,omitempty"`
}

type SheetQuestion struct {
	ID          int64             `json:"id"`
	Text        string            `json:"text"`
	Type        quiz.QuestionType `json:"question_type"`
	Explanation string            `json:"explanation,omitempty"`
	Answers     []SheetAnswer     `json:"answers"`
}

// AttemptSheet is what a taker sees when starting a quiz. QuestionIDs must
// be sent back with the submission.
type AttemptSheet struct {
	QuizID          int64           `json:"quiz_id"`
	Title           string          `json:"title"`
	TimeLimit       int             `json:"time_limit"`
	InstantFeedback bool            `json:"instant_feedback"`
	QuestionIDs     string          `json:"question_ids"`
	Questions       []SheetQuestion `json:"questions"`
}

// Submission holds chosen answer ids keyed by question id, the threaded
// question_ids token and the client-observed timeout flag.
type Submission struct {
	Answers     map[int64][]string
	QuestionIDs string
	TimeOver    bool
}

type QuestionResult struct {
	QuestionID  int64             `json:"question_id"`
	Text        string            `json:"text"`
	Type        quiz.QuestionType `json:"question_type"`
	Explanation string            `json:"explanation"`
	Correct     bool              `json:"is_correct"`
	ChosenIDs   []int64           `json:"chosen_ids"`
	CorrectIDs  []int64           `json:"correct_ids"`
	Answers     []quiz.Answer     `json:"answers"`
}

type AttemptResult struct {
	Attempt      quiz.Attempt     `json:"attempt"`
	Score        int              `json:"score"`
	CorrectCount int              `json:"correct_count"`
	Total        int              `json:"total_questions"`
	TimeOver     bool             `json:"time_over"`
	Details      []QuestionResult `json:"details"`
}

func (s *Service) StartAttempt(ctx context.Context, p rbac.Principal, quizID int64) (AttemptSheet, error) {
	q, err := s.loadForView(ctx, p, quizID)
	if err != nil {
		return AttemptSheet{}, err
	}
	pool, err := s.store.Questions(ctx, quizID)
	if err != nil {
		return AttemptSheet{}, err
	}
	if len(pool) == 0 {
		return AttemptSheet{}, quiz.ErrNoQuestions
	}

	var picked []quiz.Question
	s.withRand(func(rng *rand.Rand) {
		picked = grading.Select(pool, q.QuestionsCountLimit, rng)
		for i := range picked {
			picked[i] = grading.ShuffleAnswers(picked[i], rng)
		}
	})

	sheet := AttemptSheet{
		QuizID:          q.ID,
		Title:           q.Title,
		TimeLimit:       q.TimeLimit,
		InstantFeedback: q.InstantFeedback,
		Questions:       make([]SheetQuestion, 0, len(picked)),
	}
	ids := make([]int64, 0, len(picked))
	for _, pq := range picked {
		ids = append(ids, pq.ID)
		sq := SheetQuestion{ID: pq.ID, Text: pq.Text, Type: pq.Type, Answers: make([]SheetAnswer, 0, len(pq.Answers))}
		if q.InstantFeedback {
			sq.Explanation = pq.Explanation
		}
		for _, a := range pq.Answers {
			sa := SheetAnswer{ID: a.ID, Text: a.Text}
			if q.InstantFeedback {
				correct := a.IsCorrect
				sa.IsCorrect = &correct
			}
			sq.Answers = append(sq.Answers, sa)
		}
		sheet.Questions = append(sheet.Questions, sq)
	}
	sheet.QuestionIDs = grading.FormatIDList(ids)
	return sheet, nil
}

// SubmitAttempt grades exactly the presented subset, falling back to the
// whole pool when the token is missing or matches nothing, and records one
// attempt.
func (s *Service) SubmitAttempt(ctx context.Context, p rbac.Principal, quizID int64, sub Submission) (AttemptResult, error) {
	if _, err := s.loadForView(ctx, p, quizID); err != nil {
		return AttemptResult{}, err
	}
	pool, err := s.store.Questions(ctx, quizID)
	if err != nil {
		return AttemptResult{}, err
	}
	if len(pool) == 0 {
		return AttemptResult{}, quiz.ErrNoQuestions
	}
	graded := grading.Restrict(pool, grading.ParseIDList(sub.QuestionIDs))
	if len(graded) == 0 {
		graded = pool
	}

	res, err := grading.GradeAll(s.grader, graded, sub.Answers)
	if err != nil {
		return AttemptResult{}, err
	}

	a := quiz.Attempt{
		QuizID:         quizID,
		Score:          res.Score,
		CorrectCount:   res.CorrectCount,
		TotalQuestions: res.Total,
		TimeExceeded:   sub.TimeOver,
	}
	if p.Authenticated() {
		uid := p.UserID
		a.UserID = &uid
	}
	a, err = s.store.RecordAttempt(ctx, a)
	if err != nil {
		return AttemptResult{}, err
	}
	s.log.Info("attempt recorded",
		"quiz_id", quizID, "attempt_id", a.ID, "user_id", p.UserID,
		"score", a.Score, "correct", a.CorrectCount, "total", a.TotalQuestions, "time_over", a.TimeExceeded)

	out := AttemptResult{
		Attempt:      a,
		Score:        res.Score,
		CorrectCount: res.CorrectCount,
		Total:        res.Total,
		TimeOver:     sub.TimeOver,
		Details:      make([]QuestionResult, 0, len(graded)),
	}
	for i, q := range graded {
		o := res.Outcomes[i]
		out.Details = append(out.Details, QuestionResult{
			QuestionID:  q.ID,
			Text:        q.Text,
			Type:        q.Type,
			Explanation: q.Explanation,
			Correct:     o.Correct,
			ChosenIDs:   o.Chosen,
			CorrectIDs:  o.CorrectIDs,
			Answers:     q.Answers,
		})
	}
	return out, nil
}

func (s *Service) ListMyAttempts(ctx context.Context, p rbac.Principal) ([]quiz.Attempt, error) {
	if !p.Authenticated() {
		return nil, quiz.ErrUnauthenticated
	}
	return s.store.ListAttemptsByUser(ctx, p.UserID)
}

func (s *Service) ListQuizAttempts(ctx context.Context, p rbac.Principal, quizID int64) ([]quiz.Attempt, error) {
	if _, err := s.loadForEdit(ctx, p, quizID); err != nil {
		return nil, err
	}
	return s.store.ListAttemptsByQuiz(ctx, quizID)
}
