package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	service usecase.ReceiptService
	log     *zap.Logger
}

func NewReceiptHandler(service usecase.ReceiptService, log *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		service: service,
		log:     log,
	}
}

// Get handles GET /api/receipts/{id}
func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid receipt ID", nil)
		return
	}

	resp, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		utils.ResponseError(w, err)
		return
	}

	utils.ResponseSuccess(w, "Receipt retrieved", resp)
}

// Print handles POST /api/receipts/{id}/print. The body is optional.
func (h *ReceiptHandler) Print(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid receipt ID", nil)
		return
	}

	var req request.PrintReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.Print(r.Context(), identity, id, req.Override, clientMeta(r).IPAddress)
	if err != nil {
		utils.ResponseError(w, err)
		return
	}

	utils.ResponseSuccess(w, "Receipt printed", resp)
}
