package response

import (
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/shopspring/decimal"
)

type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"keyId,omitempty"`
}

type SettlementResponse struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"paymentId"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	ReceiptID string          `json:"receiptId,omitempty"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type BillResponse struct {
	ID            string            `json:"id"`
	Department    entity.Department `json:"department"`
	AccountNumber string            `json:"accountNumber"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        entity.BillStatus `json:"status"`
	BillingDate   time.Time         `json:"billingDate"`
	DueDate       time.Time         `json:"dueDate"`
	PaidDate      *time.Time        `json:"paidDate,omitempty"`
}

type ReceiptResponse struct {
	ID            string            `json:"id"`
	PaymentID     string            `json:"paymentId"`
	Department    entity.Department `json:"department"`
	AccountNumber string            `json:"accountNumber"`
	Reference     string            `json:"reference"`
	Amount        decimal.Decimal   `json:"amount"`
	PrintCount    int               `json:"printCount"`
	MaxPrints     int               `json:"maxPrints"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func BillToResponse(bill *entity.Bill) BillResponse {
	return BillResponse{
		ID:            bill.ID.String(),
		Department:    bill.Department,
		AccountNumber: bill.AccountNumber,
		Amount:        bill.Amount,
		Status:        bill.Status,
		BillingDate:   bill.BillingDate,
		DueDate:       bill.DueDate,
		PaidDate:      bill.PaidDate,
	}
}

func ReceiptToResponse(receipt *entity.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:            receipt.ID.String(),
		PaymentID:     receipt.PaymentID.String(),
		Department:    receipt.Department,
		AccountNumber: receipt.AccountNumber,
		Reference:     receipt.Reference,
		Amount:        receipt.Amount,
		PrintCount:    receipt.PrintCount,
		MaxPrints:     receipt.MaxPrints,
		CreatedAt:     receipt.CreatedAt,
	}
}

func SettlementToResponse(payment *entity.Payment, receipt *entity.Receipt) SettlementResponse {
	resp := SettlementResponse{
		Success:   payment.Status == entity.PaymentStatusSuccess,
		PaymentID: payment.ID.String(),
		Reference: payment.Reference,
		Amount:    payment.Amount,
	}
	if receipt != nil {
		resp.ReceiptID = receipt.ID.String()
	}
	return resp
}
