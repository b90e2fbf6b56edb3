package webhookservice

import (
	"context"
	"net/http"
)

type IWebhookService interface {
	// VerifySignature recomputes the keyed hash over the raw payload bytes
	// and compares it to the provider's signature. The raw bytes must be
	// hashed as received; re-serializing a parsed payload can change byte
	// layout and silently break verification.
	VerifySignature(ctx context.Context, rawPayload []byte, signature string) bool

	// HandleDeposit processes a verified deposit webhook. A processing
	// failure is captured as a retry record and nil is returned, so the
	// provider sees success and does not retry on its own cadence. Only a
	// failure to persist the retry record propagates.
	HandleDeposit(ctx context.Context, rawPayload []byte, headers http.Header) error

	// ProcessDeposit applies the deposit to the ledger, idempotently by
	// external transaction hash. The retry scheduler re-invokes this with
	// stored payloads.
	ProcessDeposit(ctx context.Context, rawPayload []byte) error
}
