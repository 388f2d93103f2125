package access

import "context"

// DecisionCache is a bounded-TTL cache keyed by (content type, content id) with
// one entry per user. Every grant and revoke must invalidate it.
type DecisionCache interface {
	Get(ctx context.Context, contentType, contentID, userID string) (*Decision, bool)
	Set(ctx context.Context, contentType, contentID, userID string, d Decision)
	Invalidate(ctx context.Context, contentType, contentID string) error
	// InvalidateUser drops every cached decision for the user, used after
	// plan tier changes.
	InvalidateUser(ctx context.Context, userID string) error
}

// FactsReader loads everything Decide needs in one atomic read.
type FactsReader interface {
	LoadFacts(ctx context.Context, userID, contentType, contentID string) (Facts, error)
}
