package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mind-engage/quizhub/internal/accounts"
	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
)

// UserLookup is satisfied by accounts.SQLStore.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (accounts.User, error)
}

// AttachUserFromDB re-checks an authenticated principal against the users
// table so tokens of deleted accounts stop working, and refreshes the
// username from the stored row.
func AttachUserFromDB(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := rbac.PrincipalFromContext(ctx)
			if !p.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.GetUser(ctx, p.UserID)
			switch {
			case err == nil:
				p.Username = u.Username
				next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(ctx, p)))
			case errors.Is(err, quiz.ErrNotFound):
				http.Error(w, "account no longer exists", http.StatusUnauthorized)
			default:
				http.Error(w, "user lookup failed", http.StatusInternalServerError)
			}
		})
	}
}
