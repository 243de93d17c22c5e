package services

import "errors"

// Sentinel errors surfaced by the checkout and payment services. Handlers
// map these onto the HTTP error envelope.
var (
	ErrEmptyCart            = errors.New("checkout requires at least one item")
	ErrInvalidDates         = errors.New("end date must be after start date")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrInvalidRentalType    = errors.New("invalid rental type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrFurnitureNotFound    = errors.New("furniture not found")
	ErrInsufficientStock    = errors.New("not enough furniture in stock")

	ErrOrderNotFound       = errors.New("rental order not found")
	ErrNotOrderOwner       = errors.New("rental order belongs to another user")
	ErrOrderNotCancellable = errors.New("only pending orders can be cancelled")

	ErrPaymentNotFound     = errors.New("payment record not found")
	ErrPaymentAlreadyFinal = errors.New("payment record is already finalized")
	ErrVerificationFailed  = errors.New("payment could not be verified")
)
