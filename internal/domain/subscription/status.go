package subscription

import "strings"

// Status is the canonical subscription state, independent of provider vocabulary.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusIncomplete, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// providerStatuses maps provider subscription states and event suffixes
// (subscription.<suffix>) onto canonical statuses.
var providerStatuses = map[string]Status{
	"created":       StatusIncomplete,
	"authenticated": StatusIncomplete,
	"pending":       StatusIncomplete,
	"active":        StatusActive,
	"activated":     StatusActive,
	"resumed":       StatusActive,
	"charged":       StatusActive,
	"paused":        StatusPastDue,
	"halted":        StatusPastDue,
	"completed":     StatusCanceled,
	"cancelled":     StatusCanceled,
	"canceled":      StatusCanceled,
	"expired":       StatusCanceled,
}

// MapProviderStatus translates a provider status. ok is false for unknown values.
func MapProviderStatus(providerStatus string) (Status, bool) {
	s, ok := providerStatuses[strings.ToLower(strings.TrimSpace(providerStatus))]
	return s, ok
}
