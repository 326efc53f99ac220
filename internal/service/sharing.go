package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mind-engage/quizhub/internal/quiz"
	"github.com/mind-engage/quizhub/internal/rbac"
	syncx "github.com/mind-engage/quizhub/internal/sync"
)

func permissionEvent(quizID int64, data map[string]any) *quiz.Event {
	data["quiz_id"] = quizID
	return &quiz.Event{Type: syncx.PermissionChanged, Key: strconv.FormatInt(quizID, 10), Data: data}
}

func (s *Service) ListPermissions(ctx context.Context, p rbac.Principal, quizID int64) (quiz.Permissions, error) {
	if _, err := s.loadForAuthor(ctx, p, quizID); err != nil {
		return quiz.Permissions{}, err
	}
	return s.store.Permissions(ctx, quizID)
}

// GrantUser gives username a role on the quiz, replacing any earlier grant.
func (s *Service) GrantUser(ctx context.Context, p rbac.Principal, quizID int64, username, role string) (quiz.UserPermission, error) {
	q, err := s.loadForAuthor(ctx, p, quizID)
	if err != nil {
		return quiz.UserPermission{}, err
	}
	r, err := quiz.ParseRole(role)
	if err != nil {
		return quiz.UserPermission{}, quiz.Invalid("role", "%v", err)
	}
	username = strings.TrimSpace(username)
	uid, err := s.dir.UserIDByUsername(ctx, username)
	if errors.Is(err, quiz.ErrNotFound) {
		return quiz.UserPermission{}, quiz.Invalid("username", "unknown user %q", username)
	}
	if err != nil {
		return quiz.UserPermission{}, err
	}
	if uid == q.AuthorID {
		return quiz.UserPermission{}, quiz.Invalid("username", "the author already has full access")
	}

	perm := quiz.UserPermission{QuizID: quizID, UserID: uid, Username: username, Role: r}
	ev := permissionEvent(quizID, map[string]any{"action": "grant", "user_id": uid, "role": r})
	if err := s.store.SetUserPermission(ctx, perm, ev); err != nil {
		return quiz.UserPermission{}, err
	}
	s.log.Info("user permission granted", "quiz_id", quizID, "user_id", uid, "role", r)
	return perm, nil
}

func (s *Service) RevokeUser(ctx context.Context, p rbac.Principal, quizID, userID int64) error {
	if _, err := s.loadForAuthor(ctx, p, quizID); err != nil {
		return err
	}
	ev := permissionEvent(quizID, map[string]any{"action": "revoke", "user_id": userID})
	return s.store.DeleteUserPermission(ctx, quizID, userID, ev)
}

// GrantGroup shares the quiz with a group owned by the quiz author.
func (s *Service) GrantGroup(ctx context.Context, p rbac.Principal, quizID, groupID int64, role string) (quiz.GroupPermission, error) {
	q, err := s.loadForAuthor(ctx, p, quizID)
	if err != nil {
		return quiz.GroupPermission{}, err
	}
	r, err := quiz.ParseRole(role)
	if err != nil {
		return quiz.GroupPermission{}, quiz.Invalid("role", "%v", err)
	}
	owner, err := s.dir.GroupOwner(ctx, groupID)
	if errors.Is(err, quiz.ErrNotFound) {
		return quiz.GroupPermission{}, quiz.Invalid("group_id", "unknown group %d", groupID)
	}
	if err != nil {
		return quiz.GroupPermission{}, err
	}
	if owner != q.AuthorID {
		return quiz.GroupPermission{}, quiz.Invalid("group_id", "you can only share with groups you own")
	}

	perm := quiz.GroupPermission{QuizID: quizID, GroupID: groupID, Role: r}
	ev := permissionEvent(quizID, map[string]any{"action": "grant", "group_id": groupID, "role": r})
	if err := s.store.SetGroupPermission(ctx, perm, ev); err != nil {
		return quiz.GroupPermission{}, err
	}
	s.log.Info("group permission granted", "quiz_id", quizID, "group_id", groupID, "role", r)
	return perm, nil
}

func (s *Service) RevokeGroup(ctx context.Context, p rbac.Principal, quizID, groupID int64) error {
	if _, err := s.loadForAuthor(ctx, p, quizID); err != nil {
		return err
	}
	ev := permissionEvent(quizID, map[string]any{"action": "revoke", "group_id": groupID})
	return s.store.DeleteGroupPermission(ctx, quizID, groupID, ev)
}
