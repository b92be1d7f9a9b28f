package enums

import "fmt"

// CartOp identifies a cart-affecting operation processed by the sync engine.
type CartOp string

const (
	CartOpInitialize     CartOp = "initialize"
	CartOpAdd            CartOp = "add"
	CartOpUpdateQuantity CartOp = "update_quantity"
	CartOpRemove         CartOp = "remove"
	CartOpApplyPromotion CartOp = "apply_promotion"
	CartOpEmailCart      CartOp = "email_cart"
	CartOpClear          CartOp = "clear"
)

var validCartOps = []CartOp{
	CartOpInitialize,
	CartOpAdd,
	CartOpUpdateQuantity,
	CartOpRemove,
	CartOpApplyPromotion,
	CartOpEmailCart,
	CartOpClear,
}

// String implements fmt.Stringer.
func (c CartOp) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartOp.
func (c CartOp) IsValid() bool {
	for _, candidate := range validCartOps {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartOp converts raw input into a CartOp.
func ParseCartOp(value string) (CartOp, error) {
	for _, candidate := range validCartOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart op %q", value)
}
