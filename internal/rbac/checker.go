package rbac

import (
	"context"

	"github.com/mind-engage/quizhub/internal/quiz"
)

// GrantSource reads stored grants. quiz.Store satisfies it.
type GrantSource interface {
	UserRole(ctx context.Context, quizID, userID int64) (quiz.Role, bool, error)
	GroupRoles(ctx context.Context, quizID, userID int64) ([]quiz.Role, error)
}

// Checker answers view/edit questions, loading grants only when the
// quiz itself does not already decide.
type Checker struct {
	src GrantSource
}

func NewChecker(src GrantSource) *Checker { return &Checker{src: src} }

func (c *Checker) Grants(ctx context.Context, p Principal, quizID int64) (Grants, error) {
	var g Grants
	if !p.Authenticated() {
		return g, nil
	}
	role, ok, err := c.src.UserRole(ctx, quizID, p.UserID)
	if err != nil {
		return g, err
	}
	if ok {
		g.UserRole = role
	}
	g.GroupRoles, err = c.src.GroupRoles(ctx, quizID, p.UserID)
	return g, err
}

func (c *Checker) CanView(ctx context.Context, p Principal, q quiz.Quiz) (bool, error) {
	if q.Visibility == quiz.Public || IsAuthor(p, q) {
		return true, nil
	}
	if !p.Authenticated() {
		return false, nil
	}
	g, err := c.Grants(ctx, p, q.ID)
	if err != nil {
		return false, err
	}
	return CanView(p, q, g), nil
}

func (c *Checker) CanEdit(ctx context.Context, p Principal, q quiz.Quiz) (bool, error) {
	if !p.Authenticated() {
		return false, nil
	}
	if IsAuthor(p, q) {
		return true, nil
	}
	g, err := c.Grants(ctx, p, q.ID)
	if err != nil {
		return false, err
	}
	return CanEdit(p, q, g), nil
}

// ---- principal in context ----

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	if v := ctx.Value(ctxKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Anonymous()
}
