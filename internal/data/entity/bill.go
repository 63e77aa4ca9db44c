package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillStatusUnpaid         BillStatus = "UNPAID"
	BillStatusPendingPayment BillStatus = "PENDING_PAYMENT"
	BillStatusPaid           BillStatus = "PAID"
)

type Bill struct {
	Base
	Department    Department      `db:"-"`
	AccountNumber string          `db:"account_number"`
	Amount        decimal.Decimal `db:"amount"`
	Status        BillStatus      `db:"status"`
	BillingDate   time.Time       `db:"billing_date"`
	DueDate       time.Time       `db:"due_date"`
	PaidDate      *time.Time      `db:"paid_date"`
}
