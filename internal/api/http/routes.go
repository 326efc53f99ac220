// Package http exposes the quiz service over a JSON API.
package http

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizhub/internal/accounts"
	authmw "github.com/mind-engage/quizhub/internal/auth/middleware"
	"github.com/mind-engage/quizhub/internal/rbac"
	"github.com/mind-engage/quizhub/internal/service"
)

type Deps struct {
	Service            *service.Service
	Accounts           *accounts.SQLStore
	Auth               *authmw.AuthService
	Log                *slog.Logger
	EnableRegistration bool
	ImportMaxBytes     int64
}

// Mount registers every route on r. Authentication is optional on the
// whole tree; handlers that need a user are wrapped in RequireUser.
func Mount(r chi.Router, d Deps) {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", authmw.LoginHandler(d.Auth, d.Accounts))
		ar.Post("/register", RegisterHandler(d))
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.Authenticate(d.Auth), authmw.AttachUserFromDB(d.Accounts))

		r.Get("/quizzes", ListPublicQuizzesHandler(d))
		r.Get("/quizzes/{quizID}", GetQuizHandler(d))
		r.Get("/quizzes/{quizID}/questions", ListQuestionsHandler(d))
		r.Get("/quizzes/{quizID}/start", StartAttemptHandler(d))
		r.Post("/quizzes/{quizID}/submit", SubmitAttemptHandler(d))

		r.Group(func(pr chi.Router) {
			pr.Use(rbac.RequireUser)

			pr.Get("/me", MeHandler(d))
			pr.Put("/me", UpdateProfileHandler(d))
			pr.Delete("/me", DeleteAccountHandler(d))
			pr.Post("/me/password", ChangePasswordHandler(d))
			pr.Get("/me/quizzes", DashboardHandler(d))
			pr.Get("/me/attempts", MyAttemptsHandler(d))

			pr.Post("/quizzes", CreateQuizHandler(d))
			pr.Post("/quizzes/generate", GenerateQuizHandler(d))
			pr.Put("/quizzes/{quizID}", UpdateQuizHandler(d))
			pr.Delete("/quizzes/{quizID}", DeleteQuizHandler(d))
			pr.Post("/quizzes/{quizID}/questions", AddQuestionHandler(d))
			pr.Put("/questions/{questionID}", UpdateQuestionHandler(d))
			pr.Delete("/questions/{questionID}", DeleteQuestionHandler(d))
			pr.Get("/quizzes/{quizID}/attempts", QuizAttemptsHandler(d))
			pr.Post("/quizzes/{quizID}/import", ImportQuestionsHandler(d))
			pr.Get("/quizzes/{quizID}/imports/*", ImportArchiveHandler(d))
			pr.Get("/quizzes/{quizID}/export", ExportQuizHandler(d))

			pr.Get("/quizzes/{quizID}/permissions", ListPermissionsHandler(d))
			pr.Put("/quizzes/{quizID}/permissions/users", GrantUserHandler(d))
			pr.Delete("/quizzes/{quizID}/permissions/users/{userID}", RevokeUserHandler(d))
			pr.Put("/quizzes/{quizID}/permissions/groups", GrantGroupHandler(d))
			pr.Delete("/quizzes/{quizID}/permissions/groups/{groupID}", RevokeGroupHandler(d))

			pr.Get("/groups", ListGroupsHandler(d))
			pr.Post("/groups", CreateGroupHandler(d))
			pr.Get("/groups/{groupID}", GetGroupHandler(d))
			pr.Put("/groups/{groupID}", UpdateGroupHandler(d))
			pr.Delete("/groups/{groupID}", DeleteGroupHandler(d))

			pr.Get("/events", EventsHandler(d))
		})
	})
}
