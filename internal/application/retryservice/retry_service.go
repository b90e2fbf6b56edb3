package retryservice

import (
	"context"

	"github.com/tradepulse/custody/internal/domain"
)

// Processor re-applies a stored webhook payload. The webhook service
// implements this.
type Processor interface {
	ProcessDeposit(ctx context.Context, rawPayload []byte) error
}

type IRetryService interface {
	// Run sweeps on a fixed interval until the context is cancelled.
	Run(ctx context.Context)

	// Sweep claims due retry records, re-drives them through the processor,
	// and reschedules failures with exponential backoff or promotes them to
	// dead-letter once retries are exhausted. Returns the number of records
	// that succeeded.
	Sweep(ctx context.Context) (int, error)

	// Replay returns a dead-letter record to the queue for an immediate
	// attempt. Operator action.
	Replay(ctx context.Context, retryID string) error

	DeadLetters(ctx context.Context, limit int) ([]domain.RetryRecord, error)
}
