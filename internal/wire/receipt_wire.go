package wire

import (
	"net/http"

	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReceipt(
	r chi.Router,
	receiptHandler *adaptor.ReceiptHandler,
	session func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	r.Route("/api/receipts/{id}", func(r chi.Router) {
		r.Use(session)

		// Ownership is checked by the service; receipt:read_any widens it
		r.Get("/", receiptHandler.Get)
		r.With(middleware.RequirePermission(usecase.CapReceiptPrint, log)).Post("/print", receiptHandler.Print)
	})
}
