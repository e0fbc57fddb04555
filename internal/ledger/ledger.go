// Package ledger enforces daily call budgets for external APIs. Every
// outbound call is gated through TryConsume; a denied consume is the signal
// to stop spending, not an error.
package ledger

import "context"

// API names a budgeted external service.
type API string

const (
	// APIKeyword is the search-volume lookup service.
	APIKeyword API = "keyword"
	// APIContent is the article-generation service.
	APIContent API = "content"
)

// Ledger meters daily API usage. Budgets reset at midnight by keying usage
// on the calendar day, so there is no reset job to miss.
type Ledger interface {
	// TryConsume atomically claims one call against today's budget. It
	// returns false, without incrementing, when the budget is exhausted.
	TryConsume(ctx context.Context, api API) (bool, error)

	// Remaining reports how many calls today's budget still allows.
	Remaining(ctx context.Context, api API) (int, error)
}
