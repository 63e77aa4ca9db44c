package adaptor

import (
	"net"
	"net/http"

	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Bill    *BillHandler
	Payment *PaymentHandler
	Receipt *ReceiptHandler
	Health  *HealthHandler
}

func NewHandler(service *usecase.Service, checks map[string]HealthCheck, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, service.User, config.JWT, log),
		Bill:    NewBillHandler(service.Bill, log),
		Payment: NewPaymentHandler(service.Payment, log),
		Receipt: NewReceiptHandler(service.Receipt, log),
		Health:  NewHealthHandler(checks, log),
	}
}

// clientMeta expects chi's RealIP middleware to have normalised RemoteAddr.
func clientMeta(r *http.Request) request.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return request.ClientMeta{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

func identityOrUnauthorized(w http.ResponseWriter, r *http.Request) (utils.Identity, bool) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return identity, ok
}
