package wire

import (
	"net/http"

	"citizen-kiosk/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	session func(http.Handler) http.Handler,
) {
	r.Route("/api/auth", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Post("/send-otp", authHandler.SendOTP)
		r.Post("/verify-otp", authHandler.VerifyOTP)

		// ==================== PROTECTED ROUTES ====================
		r.With(session).Post("/logout", authHandler.Logout)
		r.With(session).Get("/me", authHandler.Me)
	})
}
