package enums

import "fmt"

// MovementRefType maps to the movement_ref_type_enum enum in Postgres. It
// identifies the kind of record a stock movement was derived from.
type MovementRefType string

const (
	MovementRefTypePurchaseOrder MovementRefType = "purchase_order"
	MovementRefTypeInvoice       MovementRefType = "invoice"
	MovementRefTypeAdjustment    MovementRefType = "adjustment"
)

var validMovementRefTypes = []MovementRefType{
	MovementRefTypePurchaseOrder,
	MovementRefTypeInvoice,
	MovementRefTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ref type enum.
func (t MovementRefType) IsValid() bool {
	for _, candidate := range validMovementRefTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMovementRefType converts raw input into MovementRefType.
func ParseMovementRefType(value string) (MovementRefType, error) {
	for _, candidate := range validMovementRefTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement ref type %q", value)
}
