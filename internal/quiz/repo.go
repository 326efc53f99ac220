package quiz

import "context"

// Event is appended to the event log in the same transaction as the write it
// describes. A nil *Event means nothing is logged.
type Event struct {
	Type string
	Key  string
	Data any
}

type Store interface {
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	// CreateQuizWithQuestions writes the quiz and its full question set atomically.
	CreateQuizWithQuestions(ctx context.Context, q Quiz, qs []Question, ev *Event) (Quiz, []Question, error)
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
	ListPublic(ctx context.Context, titleQuery string) ([]Quiz, error)
	Dashboard(ctx context.Context, userID int64) (Dashboard, error)

	Questions(ctx context.Context, quizID int64) ([]Question, error)
	CountQuestions(ctx context.Context, quizID int64) (int, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	// AddQuestions inserts all questions and answers or none of them.
	AddQuestions(ctx context.Context, quizID int64, qs []Question, ev *Event) ([]Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	UserRole(ctx context.Context, quizID, userID int64) (Role, bool, error)
	GroupRoles(ctx context.Context, quizID, userID int64) ([]Role, error)
	Permissions(ctx context.Context, quizID int64) (Permissions, error)
	SetUserPermission(ctx context.Context, p UserPermission, ev *Event) error
	DeleteUserPermission(ctx context.Context, quizID, userID int64, ev *Event) error
	SetGroupPermission(ctx context.Context, p GroupPermission, ev *Event) error
	DeleteGroupPermission(ctx context.Context, quizID, groupID int64, ev *Event) error

	// RecordAttempt appends one immutable attempt row.
	RecordAttempt(ctx context.Context, a Attempt) (Attempt, error)
	ListAttemptsByUser(ctx context.Context, userID int64) ([]Attempt, error)
	ListAttemptsByQuiz(ctx context.Context, quizID int64) ([]Attempt, error)
}
