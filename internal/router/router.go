package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/reminders/api/handler"
)

type Handlers struct {
	Completion *apiHandler.CompletionHandler
	Client     *apiHandler.ClientHandler
	Reminder   *apiHandler.ReminderHandler
	Mail       *apiHandler.MailHandler
	Health     *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public completion links from reminder emails
	r.GET("/complete/{token}", handlers.Completion.Complete)

	// Admin routes
	r.GET("/api/v1/clients", authMiddleware(handlers.Client.ListClients))
	r.POST("/api/v1/clients", authMiddleware(handlers.Client.CreateClient))
	r.GET("/api/v1/clients/{id}", authMiddleware(handlers.Client.GetClient))
	r.PUT("/api/v1/clients/{id}", authMiddleware(handlers.Client.UpdateClient))

	r.GET("/api/v1/reminders", authMiddleware(handlers.Reminder.ListReminders))
	r.POST("/api/v1/reminders", authMiddleware(handlers.Reminder.CreateReminder))
	r.GET("/api/v1/reminders/{id}", authMiddleware(handlers.Reminder.GetReminder))
	r.PUT("/api/v1/reminders/{id}", authMiddleware(handlers.Reminder.UpdateReminder))

	r.POST("/api/v1/mail/test", authMiddleware(handlers.Mail.SendTest))

	return r
}
