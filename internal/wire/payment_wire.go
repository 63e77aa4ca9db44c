package wire

import (
	"net/http"

	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	session func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		// ==================== GATEWAY ROUTES ====================
		// Authenticated by the webhook signature, not a session
		r.Post("/webhook", paymentHandler.Webhook)

		// ==================== PROTECTED ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(session)
			r.Use(middleware.RequirePermission(usecase.CapPaymentCreate, log))

			r.Post("/create-order", paymentHandler.CreateOrder)
			r.Post("/verify", paymentHandler.Verify)
		})
	})
}
