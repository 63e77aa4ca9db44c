package request

import "github.com/shopspring/decimal"

// CreateOrderRequest names the bill through whichever reference the department
// uses; exactly one is expected.
type CreateOrderRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"accountNumber" validate:"required,min=3,max=50"`
	Department    string          `json:"department" validate:"required,oneof=ELECTRICITY WATER GAS MUNICIPAL TRANSPORT PDS"`
	BillID        string          `json:"billId" validate:"required_without_all=ChallanID BookingID"`
	ChallanID     string          `json:"challanId"`
	BookingID     string          `json:"bookingId"`
}

// BillReference returns the first non-empty bill reference.
func (r CreateOrderRequest) BillReference() string {
	switch {
	case r.BillID != "":
		return r.BillID
	case r.ChallanID != "":
		return r.ChallanID
	default:
		return r.BookingID
	}
}

type VerifyPaymentRequest struct {
	OrderID       string          `json:"orderId" validate:"required,max=64"`
	PaymentID     string          `json:"paymentId" validate:"required,max=64"`
	Signature     string          `json:"signature" validate:"required,max=128"`
	Department    string          `json:"department" validate:"required,oneof=ELECTRICITY WATER GAS MUNICIPAL TRANSPORT PDS"`
	AccountNumber string          `json:"accountNumber" validate:"required,min=3,max=50"`
	BillID        string          `json:"billId" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"`
}

type PrintReceiptRequest struct {
	Override bool `json:"override"`
}
