package services

import "context"

// Wallet is the external wallet collaborator. Credit must be safe to retry
// with the same idempotency key; the wallet service deduplicates on it.
type Wallet interface {
	Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) error
}
