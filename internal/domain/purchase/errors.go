package purchase

import "errors"

var (
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrInvalidTransition = errors.New("invalid purchase status transition")
	ErrAmountMismatch    = errors.New("amount or currency does not match pinned order")
	ErrPaymentMismatch   = errors.New("payment does not match the recorded payment")
)
