package entitlement

import "errors"

var (
	ErrUserIDRequired     = errors.New("user ID is required")
	ErrPaymentRefRequired = errors.New("payment reference is required")
	ErrSourceIDRequired   = errors.New("source ID is required")
	ErrInvalidSourceType  = errors.New("invalid source type")
)
