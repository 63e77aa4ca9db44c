package adaptor

import (
	"net/http"

	"citizen-kiosk/internal/dto/request"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BillHandler struct {
	service usecase.BillService
	log     *zap.Logger
}

func NewBillHandler(service usecase.BillService, log *zap.Logger) *BillHandler {
	return &BillHandler{
		service: service,
		log:     log,
	}
}

// List handles GET /api/bills/{department}/{accountNumber}
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(r.URL.Query().Get("page"), 1),
		PerPage: utils.ParseInt(r.URL.Query().Get("per_page"), 10),
	}

	resp, err := h.service.ListByAccount(r.Context(),
		chi.URLParam(r, "department"),
		chi.URLParam(r, "accountNumber"),
		page,
	)
	if err != nil {
		utils.ResponseError(w, err)
		return
	}

	utils.ResponseSuccess(w, "Bills retrieved", resp)
}
