package usecase

import (
	"context"
	"testing"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settledReceipt(t *testing.T, env *testEnv, owner utils.Identity) *entity.Receipt {
	t.Helper()
	bill := env.addBill(entity.DepartmentWater, "WTR-9009", "220.00", entity.BillStatusUnpaid)
	req := env.settlementRequest(bill, "order_r", "pay_r")
	req.UserID = owner.UserID

	result, err := env.service.Settlement.Settle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)
	return result.Receipt
}

func TestReceipt_PrintLimit(t *testing.T) {
	env := newTestEnv(t)
	owner := kioskIdentity()
	receipt := settledReceipt(t, env, owner)
	ctx := context.Background()

	printed, err := env.service.Receipt.Print(ctx, owner, receipt.ID, false, "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, 1, printed.PrintCount)
	assert.Equal(t, 1, printed.MaxPrints)

	_, err = env.service.Receipt.Print(ctx, owner, receipt.ID, false, "10.0.0.7")
	appErr := requireAppError(t, err, utils.KindConflict)
	assert.Equal(t, "Receipt print limit reached", appErr.Message)

	assert.Contains(t, env.audits.Actions(), entity.AuditReceiptPrinted)
}

func TestReceipt_OverrideRequiresCapability(t *testing.T) {
	env := newTestEnv(t)
	owner := kioskIdentity()
	receipt := settledReceipt(t, env, owner)
	ctx := context.Background()

	_, err := env.service.Receipt.Print(ctx, owner, receipt.ID, false, "")
	require.NoError(t, err)

	_, err = env.service.Receipt.Print(ctx, owner, receipt.ID, true, "")
	requireAppError(t, err, utils.KindForbidden)

	admin := utils.Identity{UserID: uuid.New(), PhoneNumber: "9111111111", Role: string(entity.RoleAdmin)}
	printed, err := env.service.Receipt.Print(ctx, admin, receipt.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, 2, printed.PrintCount)
}

func TestReceipt_Ownership(t *testing.T) {
	env := newTestEnv(t)
	owner := kioskIdentity()
	receipt := settledReceipt(t, env, owner)
	ctx := context.Background()

	got, err := env.service.Receipt.Get(ctx, owner, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID.String(), got.ID)

	stranger := kioskIdentity()
	_, err = env.service.Receipt.Get(ctx, stranger, receipt.ID)
	requireAppError(t, err, utils.KindForbidden)

	_, err = env.service.Receipt.Print(ctx, stranger, receipt.ID, false, "")
	requireAppError(t, err, utils.KindForbidden)

	owner2 := utils.Identity{UserID: uuid.New(), Role: string(entity.RoleOwner)}
	_, err = env.service.Receipt.Get(ctx, owner2, receipt.ID)
	require.NoError(t, err)

	_, err = env.service.Receipt.Get(ctx, owner, uuid.New())
	requireAppError(t, err, utils.KindNotFound)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       entity.UserRole
		capability Capability
		want       bool
	}{
		{entity.RoleKioskUser, CapBillRead, true},
		{entity.RoleKioskUser, CapPaymentCreate, true},
		{entity.RoleKioskUser, CapReceiptPrint, true},
		{entity.RoleKioskUser, CapReceiptReadAny, false},
		{entity.RoleKioskUser, CapReceiptOverridePrintLimit, false},
		{entity.RoleAdmin, CapReceiptOverridePrintLimit, true},
		{entity.RoleOwner, CapReceiptReadAny, true},
		{entity.UserRole("GUEST"), CapBillRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(string(tt.role), tt.capability))
		})
	}
}
