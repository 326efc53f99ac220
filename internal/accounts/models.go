// Package accounts stores users, their credentials and the groups they own.
package accounts

import (
	"errors"
	"time"
)

var (
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrWrongPassword  = errors.New("incorrect old password")
	ErrNotOwner       = errors.New("only the group owner can do this")
)

// BcryptCost matches the cost used for every stored hash.
const BcryptCost = 12

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

type Member struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Group is a named set of users managed by its owner.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}
