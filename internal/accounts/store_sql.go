package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/quizhub/internal/quiz"
)

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, now: time.Now} }

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// ---- users ----

// CreateUser hashes password and inserts u. Usernames are unique.
func (s *SQLStore) CreateUser(ctx context.Context, u User, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = s.now().UTC().Truncate(time.Second)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, u.Username).Scan(new(int))
		if err == nil {
			return ErrUsernameTaken
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email, first_name, last_name, password_hash, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			u.Username, u.Email, u.FirstName, u.LastName, string(hash), u.CreatedAt.Unix(),
		).Scan(&u.ID)
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

const userCols = `id, username, email, first_name, last_name, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, quiz.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
}

// UserIDByUsername resolves a sharing target.
func (s *SQLStore) UserIDByUsername(ctx context.Context, username string) (int64, error) {
	u, err := s.GetUserByUsername(ctx, strings.TrimSpace(username))
	return u.ID, err
}

// Authenticate checks a password and returns the user it belongs to.
func (s *SQLStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE username=$1`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return s.GetUserByUsername(ctx, username)
}

func (s *SQLStore) UpdateProfile(ctx context.Context, u User) (User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email=$1, first_name=$2, last_name=$3 WHERE id=$4`,
		u.Email, u.FirstName, u.LastName, u.ID)
	if err != nil {
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, quiz.ErrNotFound
	}
	return s.GetUser(ctx, u.ID)
}

func (s *SQLStore) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.ErrNotFound
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

// DeleteUser removes the account. Authored quizzes and owned groups go with
// it; attempts stay with a null user.
func (s *SQLStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

// ---- groups ----

func resolveMembers(ctx context.Context, tx *sql.Tx, usernames []string) ([]int64, error) {
	ids := make([]int64, 0, len(usernames))
	seen := map[int64]bool{}
	for _, name := range usernames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, quiz.Invalid("members", "unknown user %q", name)
		}
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_group_members (group_id, user_id) VALUES ($1,$2)`, groupID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) CreateGroup(ctx context.Context, ownerID int64, name string, members []string) (Group, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := resolveMembers(ctx, tx, members)
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO quiz_groups (name, owner_id, created_at) VALUES ($1,$2,$3) RETURNING id`,
			name, ownerID, s.now().Unix(),
		).Scan(&id); err != nil {
			return err
		}
		return insertMembers(ctx, tx, id, ids)
	})
	if err != nil {
		return Group{}, err
	}
	return s.GetGroup(ctx, id)
}

func (s *SQLStore) GetGroup(ctx context.Context, id int64) (Group, error) {
	var g Group
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM quiz_groups WHERE id=$1`, id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, quiz.ErrNotFound
	}
	if err != nil {
		return Group{}, err
	}
	g.CreatedAt = time.Unix(created, 0).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username FROM quiz_group_members m JOIN users u ON u.id=m.user_id
		  WHERE m.group_id=$1 ORDER BY u.username`, id)
	if err != nil {
		return Group{}, err
	}
	defer rows.Close()
	g.Members = []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username); err != nil {
			return Group{}, err
		}
		g.Members = append(g.Members, m)
	}
	return g, rows.Err()
}

// GroupOwner returns the owner id, used when sharing a quiz with a group.
func (s *SQLStore) GroupOwner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM quiz_groups WHERE id=$1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, quiz.ErrNotFound
	}
	return owner, err
}

func (s *SQLStore) ListOwnedGroups(ctx context.Context, ownerID int64) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM quiz_groups WHERE owner_id=$1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *SQLStore) checkOwner(ctx context.Context, ownerID, groupID int64) error {
	owner, err := s.GroupOwner(ctx, groupID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrNotOwner
	}
	return nil
}

// UpdateGroup renames the group and replaces its member list.
func (s *SQLStore) UpdateGroup(ctx context.Context, ownerID, groupID int64, name string, members []string) (Group, error) {
	if err := s.checkOwner(ctx, ownerID, groupID); err != nil {
		return Group{}, err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := resolveMembers(ctx, tx, members)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE quiz_groups SET name=$1 WHERE id=$2`, name, groupID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_group_members WHERE group_id=$1`, groupID); err != nil {
			return err
		}
		return insertMembers(ctx, tx, groupID, ids)
	})
	if err != nil {
		return Group{}, err
	}
	return s.GetGroup(ctx, groupID)
}

func (s *SQLStore) DeleteGroup(ctx context.Context, ownerID, groupID int64) error {
	if err := s.checkOwner(ctx, ownerID, groupID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_groups WHERE id=$1`, groupID)
	return err
}
