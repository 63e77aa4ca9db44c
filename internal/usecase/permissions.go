package usecase

import "citizen-kiosk/internal/data/entity"

type Capability string

const (
	CapBillRead                  Capability = "bill:read"
	CapPaymentCreate             Capability = "payment:create"
	CapReceiptPrint              Capability = "receipt:print"
	CapReceiptReadAny            Capability = "receipt:read_any"
	CapReceiptOverridePrintLimit Capability = "receipt:override_print_limit"
)

var rolePermissions = map[entity.UserRole][]Capability{
	entity.RoleKioskUser: {
		CapBillRead,
		CapPaymentCreate,
		CapReceiptPrint,
	},
	entity.RoleAdmin: {
		CapBillRead,
		CapPaymentCreate,
		CapReceiptPrint,
		CapReceiptReadAny,
		CapReceiptOverridePrintLimit,
	},
	entity.RoleOwner: {
		CapBillRead,
		CapPaymentCreate,
		CapReceiptPrint,
		CapReceiptReadAny,
		CapReceiptOverridePrintLimit,
	},
}

// HasPermission consults the static role table. Unknown roles have no capabilities.
func HasPermission(role string, capability Capability) bool {
	for _, c := range rolePermissions[entity.UserRole(role)] {
		if c == capability {
			return true
		}
	}
	return false
}
