package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	syncx "github.com/mind-engage/quizhub/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo(db, "")
	}
	return &SQLStore{db: db, events: events, now: time.Now}
}

const quizCols = `q.id, q.title, q.author_id, q.visibility, q.time_limit, q.questions_count_limit, q.instant_feedback, q.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuiz(sc scanner) (Quiz, error) {
	var q Quiz
	var vis string
	var created int64
	if err := sc.Scan(&q.ID, &q.Title, &q.AuthorID, &vis, &q.TimeLimit, &q.QuestionsCountLimit, &q.InstantFeedback, &created); err != nil {
		return Quiz{}, err
	}
	q.Visibility = Visibility(vis)
	q.CreatedAt = time.Unix(created, 0).UTC()
	return q, nil
}

func (s *SQLStore) queryQuizzes(ctx context.Context, query string, args ...any) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// withTx commits when fn returns nil and rolls back otherwise.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func (s *SQLStore) appendEvent(ctx context.Context, tx *sql.Tx, ev *Event) error {
	if ev == nil {
		return nil
	}
	return s.events.Append(ctx, tx, ev.Type, ev.Key, ev.Data)
}

// ---- quizzes ----

func insertQuiz(ctx context.Context, tx *sql.Tx, q Quiz) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO quizzes (title, author_id, visibility, time_limit, questions_count_limit, instant_feedback, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		q.Title, q.AuthorID, string(q.Visibility), q.TimeLimit, q.QuestionsCountLimit, q.InstantFeedback, q.CreatedAt.Unix(),
	).Scan(&id)
	return id, err
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	q.CreatedAt = s.now().UTC().Truncate(time.Second)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := insertQuiz(ctx, tx, q)
		q.ID = id
		return err
	})
	if err != nil {
		return Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return q, nil
}

func (s *SQLStore) CreateQuizWithQuestions(ctx context.Context, q Quiz, qs []Question, ev *Event) (Quiz, []Question, error) {
	q.CreatedAt = s.now().UTC().Truncate(time.Second)
	var saved []Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := insertQuiz(ctx, tx, q)
		if err != nil {
			return err
		}
		q.ID = id
		saved, err = insertQuestions(ctx, tx, id, qs)
		if err != nil {
			return err
		}
		if ev != nil && ev.Key == "" {
			ev.Key = strconv.FormatInt(id, 10)
		}
		return s.appendEvent(ctx, tx, ev)
	})
	if err != nil {
		return Quiz{}, nil, fmt.Errorf("create quiz with questions: %w", err)
	}
	return q, saved, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes q WHERE q.id=$1`, id)
	q, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, visibility=$2, time_limit=$3, questions_count_limit=$4, instant_feedback=$5
		  WHERE id=$6`,
		q.Title, string(q.Visibility), q.TimeLimit, q.QuestionsCountLimit, q.InstantFeedback, q.ID)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return expectOne(res)
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectOne(res)
}

func (s *SQLStore) ListPublic(ctx context.Context, titleQuery string) ([]Quiz, error) {
	return s.queryQuizzes(ctx,
		`SELECT `+quizCols+` FROM quizzes q
		  WHERE q.visibility='PUBLIC' AND LOWER(q.title) LIKE '%' || LOWER($1) || '%' ESCAPE '\'
		  ORDER BY q.created_at DESC, q.id DESC`, likeEscaper.Replace(strings.TrimSpace(titleQuery)))
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLStore) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	var d Dashboard
	var err error
	d.Authored, err = s.queryQuizzes(ctx,
		`SELECT `+quizCols+` FROM quizzes q WHERE q.author_id=$1 ORDER BY q.created_at DESC, q.id DESC`, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d.Shared, err = s.queryQuizzes(ctx, `SELECT `+quizCols+` FROM quizzes q
		  WHERE q.author_id<>$1 AND (
		    EXISTS (SELECT 1 FROM quiz_user_permissions up WHERE up.quiz_id=q.id AND up.user_id=$1)
		    OR EXISTS (SELECT 1 FROM quiz_group_permissions gp
		                 JOIN quiz_group_members m ON m.group_id=gp.group_id
		                WHERE gp.quiz_id=q.id AND m.user_id=$1))
		  ORDER BY q.created_at DESC, q.id DESC`, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d.Editable, err = s.queryQuizzes(ctx, `SELECT `+quizCols+` FROM quizzes q
		  WHERE q.author_id<>$1 AND (
		    EXISTS (SELECT 1 FROM quiz_user_permissions up
		             WHERE up.quiz_id=q.id AND up.user_id=$1 AND up.role='EDITOR')
		    OR EXISTS (SELECT 1 FROM quiz_group_permissions gp
		                 JOIN quiz_group_members m ON m.group_id=gp.group_id
		                WHERE gp.quiz_id=q.id AND m.user_id=$1 AND gp.role='EDITOR'))
		  ORDER BY q.created_at DESC, q.id DESC`, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// ---- questions ----

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID int64, qs []Question) ([]Question, error) {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		q.QuizID = quizID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (quiz_id, text, explanation, question_type) VALUES ($1,$2,$3,$4) RETURNING id`,
			quizID, q.Text, q.Explanation, string(q.Type),
		).Scan(&q.ID); err != nil {
			return nil, fmt.Errorf("insert question %q: %w", excerpt(q.Text), err)
		}
		answers, err := insertAnswers(ctx, tx, q.ID, q.Answers)
		if err != nil {
			return nil, err
		}
		q.Answers = answers
		out = append(out, q)
	}
	return out, nil
}

func insertAnswers(ctx context.Context, tx *sql.Tx, questionID int64, as []Answer) ([]Answer, error) {
	out := make([]Answer, 0, len(as))
	for _, a := range as {
		a.QuestionID = questionID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO answers (question_id, text, is_correct) VALUES ($1,$2,$3) RETURNING id`,
			questionID, a.Text, a.IsCorrect,
		).Scan(&a.ID); err != nil {
			return nil, fmt.Errorf("insert answer: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *SQLStore) Questions(ctx context.Context, quizID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, text, explanation, question_type FROM questions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, err
	}
	out := []Question{}
	index := map[int64]int{}
	for rows.Next() {
		var q Question
		var typ string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Explanation, &typ); err != nil {
			rows.Close()
			return nil, err
		}
		q.Type = QuestionType(typ)
		q.Answers = []Answer{}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.text, a.is_correct
		   FROM answers a JOIN questions q ON q.id=a.question_id
		  WHERE q.quiz_id=$1 ORDER BY a.id`, quizID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a Answer
		if err := arows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[a.QuestionID]; ok {
			out[i].Answers = append(out[i].Answers, a)
		}
	}
	return out, arows.Err()
}

func (s *SQLStore) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&n)
	return n, err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	var q Question
	var typ string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, quiz_id, text, explanation, question_type FROM questions WHERE id=$1`, id,
	).Scan(&q.ID, &q.QuizID, &q.Text, &q.Explanation, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(typ)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, text, is_correct FROM answers WHERE question_id=$1 ORDER BY id`, id)
	if err != nil {
		return Question{}, err
	}
	defer rows.Close()
	q.Answers = []Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return Question{}, err
		}
		q.Answers = append(q.Answers, a)
	}
	return q, rows.Err()
}

func (s *SQLStore) AddQuestions(ctx context.Context, quizID int64, qs []Question, ev *Event) ([]Question, error) {
	var saved []Question
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		saved, err = insertQuestions(ctx, tx, quizID, qs)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("add questions: %w", err)
	}
	return saved, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE questions SET text=$1, explanation=$2, question_type=$3 WHERE id=$4`,
			q.Text, q.Explanation, string(q.Type), q.ID)
		if err != nil {
			return err
		}
		if err := expectOne(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id=$1`, q.ID); err != nil {
			return err
		}
		q.Answers, err = insertAnswers(ctx, tx, q.ID, q.Answers)
		return err
	})
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return expectOne(res)
}

// ---- permissions ----

func (s *SQLStore) UserRole(ctx context.Context, quizID, userID int64) (Role, bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM quiz_user_permissions WHERE quiz_id=$1 AND user_id=$2`, quizID, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return Role(role), true, nil
}

func (s *SQLStore) GroupRoles(ctx context.Context, quizID, userID int64) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gp.role FROM quiz_group_permissions gp
		   JOIN quiz_group_members m ON m.group_id=gp.group_id
		  WHERE gp.quiz_id=$1 AND m.user_id=$2`, quizID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, Role(r))
	}
	return out, rows.Err()
}

func (s *SQLStore) Permissions(ctx context.Context, quizID int64) (Permissions, error) {
	p := Permissions{Users: []UserPermission{}, Groups: []GroupPermission{}}
	rows, err := s.db.QueryContext(ctx,
		`SELECT up.user_id, u.username, up.role FROM quiz_user_permissions up
		   JOIN users u ON u.id=up.user_id
		  WHERE up.quiz_id=$1 ORDER BY u.username`, quizID)
	if err != nil {
		return Permissions{}, err
	}
	for rows.Next() {
		up := UserPermission{QuizID: quizID}
		var role string
		if err := rows.Scan(&up.UserID, &up.Username, &role); err != nil {
			rows.Close()
			return Permissions{}, err
		}
		up.Role = Role(role)
		p.Users = append(p.Users, up)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Permissions{}, err
	}
	rows.Close()

	grows, err := s.db.QueryContext(ctx,
		`SELECT gp.group_id, g.name, gp.role FROM quiz_group_permissions gp
		   JOIN quiz_groups g ON g.id=gp.group_id
		  WHERE gp.quiz_id=$1 ORDER BY g.name`, quizID)
	if err != nil {
		return Permissions{}, err
	}
	defer grows.Close()
	for grows.Next() {
		gp := GroupPermission{QuizID: quizID}
		var role string
		if err := grows.Scan(&gp.GroupID, &gp.GroupName, &role); err != nil {
			return Permissions{}, err
		}
		gp.Role = Role(role)
		p.Groups = append(p.Groups, gp)
	}
	return p, grows.Err()
}

func (s *SQLStore) SetUserPermission(ctx context.Context, p UserPermission, ev *Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_user_permissions (quiz_id, user_id, role) VALUES ($1,$2,$3)
			 ON CONFLICT (quiz_id, user_id) DO UPDATE SET role=EXCLUDED.role`,
			p.QuizID, p.UserID, string(p.Role)); err != nil {
			return fmt.Errorf("set user permission: %w", err)
		}
		return s.appendEvent(ctx, tx, ev)
	})
}

func (s *SQLStore) DeleteUserPermission(ctx context.Context, quizID, userID int64, ev *Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM quiz_user_permissions WHERE quiz_id=$1 AND user_id=$2`, quizID, userID)
		if err != nil {
			return fmt.Errorf("delete user permission: %w", err)
		}
		if err := expectOne(res); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, ev)
	})
}

func (s *SQLStore) SetGroupPermission(ctx context.Context, p GroupPermission, ev *Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_group_permissions (quiz_id, group_id, role) VALUES ($1,$2,$3)
			 ON CONFLICT (quiz_id, group_id) DO UPDATE SET role=EXCLUDED.role`,
			p.QuizID, p.GroupID, string(p.Role)); err != nil {
			return fmt.Errorf("set group permission: %w", err)
		}
		return s.appendEvent(ctx, tx, ev)
	})
}

func (s *SQLStore) DeleteGroupPermission(ctx context.Context, quizID, groupID int64, ev *Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM quiz_group_permissions WHERE quiz_id=$1 AND group_id=$2`, quizID, groupID)
		if err != nil {
			return fmt.Errorf("delete group permission: %w", err)
		}
		if err := expectOne(res); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, ev)
	})
}

// ---- attempts ----

func (s *SQLStore) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a.CreatedAt = s.now().UTC().Truncate(time.Second)
	var uid sql.NullInt64
	if a.UserID != nil {
		uid = sql.NullInt64{Int64: *a.UserID, Valid: true}
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO quiz_attempts (quiz_id, user_id, score, correct_count, total_questions, time_exceeded, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			a.QuizID, uid, a.Score, a.CorrectCount, a.TotalQuestions, a.TimeExceeded, a.CreatedAt.Unix(),
		).Scan(&a.ID); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, syncx.AttemptRecorded, strconv.FormatInt(a.ID, 10), a)
	})
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) queryAttempts(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		var uid sql.NullInt64
		var created int64
		if err := rows.Scan(&a.ID, &a.QuizID, &uid, &a.Score, &a.CorrectCount, &a.TotalQuestions, &a.TimeExceeded, &created); err != nil {
			return nil, err
		}
		if uid.Valid {
			v := uid.Int64
			a.UserID = &v
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

const attemptCols = `id, quiz_id, user_id, score, correct_count, total_questions, time_exceeded, created_at`

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID int64) ([]Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
}

func (s *SQLStore) ListAttemptsByQuiz(ctx context.Context, quizID int64) ([]Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts WHERE quiz_id=$1 ORDER BY created_at DESC, id DESC`, quizID)
}

// ---- helpers ----

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// excerpt shortens question text for messages.
func excerpt(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 40 {
		return string(r)
	}
	return string(r[:40]) + "…"
}
