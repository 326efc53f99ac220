package rbac

import "github.com/mind-engage/quizhub/internal/quiz"

// Principal identifies the caller. UserID 0 is an anonymous visitor.
type Principal struct {
	UserID   int64
	Username string
}

func Anonymous() Principal { return Principal{} }

func (p Principal) Authenticated() bool { return p.UserID != 0 }

// Grants collects every role a principal holds on one quiz: the direct
// user grant (empty when absent) and one entry per group grant reaching them.
type Grants struct {
	UserRole   quiz.Role
	GroupRoles []quiz.Role
}

func (g Grants) any() bool { return g.UserRole != "" || len(g.GroupRoles) > 0 }

func (g Grants) editor() bool {
	if g.UserRole == quiz.Editor {
		return true
	}
	for _, r := range g.GroupRoles {
		if r == quiz.Editor {
			return true
		}
	}
	return false
}

// CanEdit: author, or an EDITOR grant directly or through a group.
func CanEdit(p Principal, q quiz.Quiz, g Grants) bool {
	if !p.Authenticated() {
		return false
	}
	return q.AuthorID == p.UserID || g.editor()
}

// CanView: public quizzes are open to everyone including anonymous
// visitors; private ones need authorship or any grant. Edit implies view.
func CanView(p Principal, q quiz.Quiz, g Grants) bool {
	if q.Visibility == quiz.Public {
		return true
	}
	if !p.Authenticated() {
		return false
	}
	return q.AuthorID == p.UserID || g.any()
}

// IsAuthor gates permission management and quiz deletion.
func IsAuthor(p Principal, q quiz.Quiz) bool {
	return p.Authenticated() && q.AuthorID == p.UserID
}
