package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is created once per settlement attempt. At most one SUCCESS payment
// exists per BillID.
type Payment struct {
	Base
	Department       Department      `db:"-"`
	UserID           uuid.UUID       `db:"user_id"`
	AccountNumber    string          `db:"account_number"`
	BillID           uuid.UUID       `db:"bill_id"`
	Amount           decimal.Decimal `db:"amount"`
	Reference        string          `db:"reference"`
	Status           PaymentStatus   `db:"status"`
	GatewayOrderID   string          `db:"gateway_order_id"`
	GatewayPaymentID *string         `db:"gateway_payment_id"`
	GatewaySignature *string         `db:"gateway_signature"`
}

// PaymentOrder binds a gateway order to the bill it was opened for. A signed
// gateway payment settles only the bill its order names.
type PaymentOrder struct {
	GatewayOrderID string          `db:"gateway_order_id"`
	Department     Department      `db:"department"`
	BillID         uuid.UUID       `db:"bill_id"`
	AccountNumber  string          `db:"account_number"`
	UserID         uuid.UUID       `db:"user_id"`
	Amount         decimal.Decimal `db:"amount"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (o *PaymentOrder) Covers(dept Department, billID uuid.UUID, accountNumber string, amount decimal.Decimal) bool {
	return o.Department == dept &&
		o.BillID == billID &&
		o.AccountNumber == accountNumber &&
		o.Amount.Equal(amount)
}
