// Package entitlement models durable grants: proof that a user may open a
// content item, or holds a plan tier, because of one specific purchase or
// subscription.
package entitlement

// Status of a grant row. Revoked rows are kept for audit.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusRevoked
}

func (s Status) String() string {
	return string(s)
}

// SourceType identifies what a plan grant came from.
type SourceType string

const (
	SourceTypePurchase     SourceType = "purchase"
	SourceTypeSubscription SourceType = "subscription"
)

func (st SourceType) IsValid() bool {
	return st == SourceTypePurchase || st == SourceTypeSubscription
}

func (st SourceType) String() string {
	return string(st)
}
