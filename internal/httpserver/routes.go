package httpserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Payment gateway callback (signature-verified, no session auth)
		r.Post("/webhook", s.HandleWebhook)

		// Checkout initiation
		r.Post("/purchase", s.HandlePurchase)

		// Admin grants (shared-secret auth)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/set-user-pro", s.HandleSetUserPro)
			r.Post("/set-pro-status", s.HandleSetProStatus)
			r.Get("/subscriptions", s.HandleAdminListSubscriptions)
			r.Post("/audio/{voice}/{bookId}/{chapter}", s.HandleUploadAudio)
			r.Delete("/audio/{voice}/{bookId}/{chapter}", s.HandleDeleteAudio)
		})

		// Book subscriptions
		r.Post("/subscriptions", s.HandleSaveSubscription)
		r.Get("/subscriptions", s.HandleListSubscriptions)
		r.Post("/unsubscribe", s.HandleUnsubscribe)
		r.Get("/unsubscribe", s.HandleUnsubscribeLink)
		r.Post("/send-email", s.HandleSendEmail)

		// Reminder dispatch (cron-secret auth)
		r.Get("/cron/send-reminders", s.HandleSendReminders)
		r.Post("/send-book-reminder", s.HandleSendBookReminder)

		// Public auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.HandleLogin)
			r.Get("/callback", s.HandleCallback)
			r.Post("/refresh", s.HandleRefreshToken)
		})

		// Protected listening progress routes (auth required)
		r.Route("/progress", func(r chi.Router) {
			r.Use(s.AuthMiddleware)

			r.Get("/", s.HandleListProgress)
			r.Get("/record", s.HandleGetProgressRecord)
			r.Get("/book/{bookId}", s.HandleGetBookProgress)
			r.Post("/playback", s.HandleRecordPlayback)
			r.Post("/complete", s.HandleMarkCompleted)
			r.Post("/in-progress", s.HandleMarkInProgress)
			r.Post("/reset", s.HandleResetProgress)
		})

		// Audio links (auth required)
		r.Route("/audio", func(r chi.Router) {
			r.Use(s.AuthMiddleware)

			r.Get("/{voice}/{bookId}/{chapter}", s.HandleAudioURL)
		})
	})

	return r
}
