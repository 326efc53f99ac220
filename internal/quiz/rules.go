package quiz

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLen      = 255
	MaxAnswerTextLen = 255
	MinAnswers       = 2
	MaxAnswers       = 10
)

// CheckCorrectCount enforces the per-type correct answer rule:
// SINGLE needs exactly one correct answer, MULTIPLE at least one.
func CheckCorrectCount(t QuestionType, correct int) error {
	switch t {
	case Single:
		if correct != 1 {
			return fmt.Errorf("a SINGLE question must have exactly 1 correct answer, got %d", correct)
		}
		return nil
	case Multiple:
		if correct < 1 {
			return fmt.Errorf("a MULTIPLE question must have at least 1 correct answer, got %d", correct)
		}
		return nil
	default:
		return fmt.Errorf("unknown question type %q", t)
	}
}

// ValidateQuiz normalizes and checks quiz settings in place.
func ValidateQuiz(q *Quiz) error {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return Invalid("title", "required")
	}
	if utf8.RuneCountInString(q.Title) > MaxTitleLen {
		return Invalid("title", "at most %d characters", MaxTitleLen)
	}
	if _, err := ParseVisibility(string(q.Visibility)); err != nil {
		return Invalid("visibility", "%v", err)
	}
	if q.TimeLimit < 0 {
		return Invalid("time_limit", "must be 0 (unlimited) or a positive number of minutes")
	}
	if q.QuestionsCountLimit < MinQuestionsCountLimit || q.QuestionsCountLimit > MaxQuestionsCountLimit {
		return Invalid("questions_count_limit", "must be between %d and %d", MinQuestionsCountLimit, MaxQuestionsCountLimit)
	}
	return nil
}

// ValidateQuestion checks a question coming from the authoring flow.
func ValidateQuestion(q *Question) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return Invalid("text", "required")
	}
	if _, err := ParseQuestionType(string(q.Type)); err != nil {
		return Invalid("question_type", "%v", err)
	}
	if len(q.Answers) < MinAnswers || len(q.Answers) > MaxAnswers {
		return Invalid("answers", "between %d and %d answers required", MinAnswers, MaxAnswers)
	}
	for i := range q.Answers {
		a := &q.Answers[i]
		a.Text = strings.TrimSpace(a.Text)
		if a.Text == "" {
			return Invalid(fmt.Sprintf("answers[%d].text", i), "required")
		}
		if utf8.RuneCountInString(a.Text) > MaxAnswerTextLen {
			return Invalid(fmt.Sprintf("answers[%d].text", i), "at most %d characters", MaxAnswerTextLen)
		}
	}
	if err := CheckCorrectCount(q.Type, q.CorrectCount()); err != nil {
		return Invalid("question_type", "%v", err)
	}
	return nil
}
