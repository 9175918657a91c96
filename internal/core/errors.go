package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Services wrap these with
// fmt.Errorf("...: %w", ...) so handlers can map them to status classes
// with errors.Is.
var (
	// ErrNotFound means an id or code did not resolve to a record.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode means a coupon with the same normalized code exists.
	ErrDuplicateCode = errors.New("coupon code already exists")

	// ErrInventoryExhausted means allocation or redemption hit the usage limit.
	ErrInventoryExhausted = errors.New("coupon usage limit reached")

	// ErrCouponInactive means the coupon exists but its status is not active.
	ErrCouponInactive = errors.New("coupon is inactive")

	// ErrBelowMinimum means the cart total is under the coupon's minimum order amount.
	ErrBelowMinimum = errors.New("cart total below minimum order amount")

	// ErrUnauthorized means the credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream means the record store or an external gateway failed.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError reports a user-correctable input problem with a
// field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
