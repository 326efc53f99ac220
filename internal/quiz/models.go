package quiz

import (
	"fmt"
	"time"
)

type Visibility string

const (
	Public  Visibility = "PUBLIC"
	Private Visibility = "PRIVATE"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case Public:
		return Public, nil
	case Private:
		return Private, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

type QuestionType string

const (
	Single   QuestionType = "SINGLE"
	Multiple QuestionType = "MULTIPLE"
)

func ParseQuestionType(s string) (QuestionType, error) {
	switch QuestionType(s) {
	case Single:
		return Single, nil
	case Multiple:
		return Multiple, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// Role is a permission level granted on a single quiz.
type Role string

const (
	Viewer Role = "VIEWER"
	Editor Role = "EDITOR"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case Viewer:
		return Viewer, nil
	case Editor:
		return Editor, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

const (
	DefaultQuestionsCountLimit = 10
	MinQuestionsCountLimit     = 1
	MaxQuestionsCountLimit     = 30
)

type Quiz struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	AuthorID            int64      `json:"author_id"`
	Visibility          Visibility `json:"visibility"`
	TimeLimit           int        `json:"time_limit"` // minutes, 0 = unlimited
	QuestionsCountLimit int        `json:"questions_count_limit"`
	InstantFeedback     bool       `json:"instant_feedback"`
	CreatedAt           time.Time  `json:"created_at"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Question struct {
	ID          int64        `json:"id"`
	QuizID      int64        `json:"quiz_id"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation"`
	Type        QuestionType `json:"question_type"`
	Answers     []Answer     `json:"answers"`
}

// CorrectIDs returns the identifiers of the answers flagged correct.
func (q Question) CorrectIDs() []int64 {
	out := make([]int64, 0, 2)
	for _, a := range q.Answers {
		if a.IsCorrect {
			out = append(out, a.ID)
		}
	}
	return out
}

func (q Question) CorrectCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// Attempt is written once per graded submission and never updated.
type Attempt struct {
	ID             int64     `json:"id"`
	QuizID         int64     `json:"quiz_id"`
	UserID         *int64    `json:"user_id"` // nil for anonymous or deleted users
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	TimeExceeded   bool      `json:"time_exceeded"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserPermission struct {
	QuizID   int64  `json:"quiz_id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
}

type GroupPermission struct {
	QuizID    int64  `json:"quiz_id"`
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	Role      Role   `json:"role"`
}

type Permissions struct {
	Users  []UserPermission  `json:"users"`
	Groups []GroupPermission `json:"groups"`
}

// Dashboard groups the quizzes a user can reach outside the public listing.
type Dashboard struct {
	Authored []Quiz `json:"authored"`
	Shared   []Quiz `json:"shared"`
	Editable []Quiz `json:"editable"`
}
