package wire

import (
	"net/http"

	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBill(
	r chi.Router,
	billHandler *adaptor.BillHandler,
	session func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	r.With(
		session,
		middleware.RequirePermission(usecase.CapBillRead, log),
	).Get("/api/bills/{department}/{accountNumber}", billHandler.List)
}
