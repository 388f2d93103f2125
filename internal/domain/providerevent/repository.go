package providerevent

import (
	"context"
	"errors"
)

var ErrEventNotFound = errors.New("provider event not found")

type Repository interface {
	// InsertIfAbsent records e unless (provider, external event id) exists.
	// It returns the stored row and whether this call inserted it. A
	// redelivery increments the stored attempt counter and refreshes the
	// signature flag.
	InsertIfAbsent(ctx context.Context, e *Event) (stored *Event, inserted bool, err error)
	MarkSuccess(ctx context.Context, id uint) error
	MarkError(ctx context.Context, id uint, message string) error
	GetByExternalID(ctx context.Context, provider, externalEventID string) (*Event, error)
}
