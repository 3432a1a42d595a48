package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation")     // 400
	ErrNotFound      = errors.New("not found")      // 404
	ErrConflict      = errors.New("conflict")       // 409
	ErrPaymentFailed = errors.New("payment failed") // 402

	ErrNoActiveOrder     = fmt.Errorf("no active order: %w", ErrNotFound)
	ErrNotInCart         = fmt.Errorf("item not in cart: %w", ErrNotFound)
	ErrEmptyCart         = fmt.Errorf("cart is empty: %w", ErrValidation)
	ErrNoDefaultAddress  = fmt.Errorf("no default address: %w", ErrValidation)
	ErrBillingRequired   = fmt.Errorf("billing address required: %w", ErrValidation)
	ErrLensesNotAttached = fmt.Errorf("no lenses attached: %w", ErrValidation)

	ErrRefundPending        = fmt.Errorf("refund pending: %w", ErrConflict)
	ErrRefundAlreadyGranted = fmt.Errorf("refund already granted: %w", ErrConflict)
	ErrRefundInconsistent   = fmt.Errorf("refund state inconsistent: %w", ErrConflict)
)

// Error pairs a sentinel kind with the message shown to the shopper.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Message returns the shopper-facing text carried by err, or "" if none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
