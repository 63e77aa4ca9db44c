package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Receipt struct {
	Base
	PaymentID     uuid.UUID       `db:"payment_id"`
	UserID        uuid.UUID       `db:"user_id"`
	Department    Department      `db:"department"`
	AccountNumber string          `db:"account_number"`
	Reference     string          `db:"reference"`
	Amount        decimal.Decimal `db:"amount"`
	PrintCount    int             `db:"print_count"`
	MaxPrints     int             `db:"max_prints"`
}
