// Package providerevent is the idempotency ledger for inbound provider
// webhooks: one row per (provider, external event id), recording whether the
// signature checked out and how processing ended.
package providerevent

import (
	"fmt"
	"time"
)

type Result string

const (
	ResultPending Result = "pending"
	ResultSuccess Result = "success"
	ResultError   Result = "error"
)

type Event struct {
	id              uint
	provider        string
	eventType       string
	externalEventID string
	payload         []byte
	signatureValid  bool
	result          Result
	errorMessage    string
	attempts        int
	receivedAt      time.Time
	processedAt     *time.Time
}

func NewEvent(provider, eventType, externalEventID string, payload []byte, signatureValid bool, receivedAt time.Time) (*Event, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if externalEventID == "" {
		return nil, fmt.Errorf("external event ID is required")
	}
	return &Event{
		provider:        provider,
		eventType:       eventType,
		externalEventID: externalEventID,
		payload:         payload,
		signatureValid:  signatureValid,
		result:          ResultPending,
		attempts:        1,
		receivedAt:      receivedAt,
	}, nil
}

func ReconstructEvent(id uint, provider, eventType, externalEventID string, payload []byte, signatureValid bool, result Result, errorMessage string, attempts int, receivedAt time.Time, processedAt *time.Time) *Event {
	return &Event{
		id:              id,
		provider:        provider,
		eventType:       eventType,
		externalEventID: externalEventID,
		payload:         payload,
		signatureValid:  signatureValid,
		result:          result,
		errorMessage:    errorMessage,
		attempts:        attempts,
		receivedAt:      receivedAt,
		processedAt:     processedAt,
	}
}

func (e *Event) ID() uint                { return e.id }
func (e *Event) Provider() string        { return e.provider }
func (e *Event) EventType() string       { return e.eventType }
func (e *Event) ExternalEventID() string { return e.externalEventID }
func (e *Event) Payload() []byte         { return e.payload }
func (e *Event) SignatureValid() bool    { return e.signatureValid }
func (e *Event) Result() Result          { return e.result }
func (e *Event) ErrorMessage() string    { return e.errorMessage }
func (e *Event) Attempts() int           { return e.attempts }
func (e *Event) ReceivedAt() time.Time   { return e.receivedAt }
func (e *Event) ProcessedAt() *time.Time { return e.processedAt }

func (e *Event) SetID(id uint) {
	e.id = id
}

// IsProcessed reports whether a prior delivery already succeeded.
func (e *Event) IsProcessed() bool {
	return e.result == ResultSuccess
}
