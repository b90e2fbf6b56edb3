package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradepulse/custody/internal/domain"
)

func TestMapRPCError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.ErrorKind
	}{
		{
			name:     "context deadline is a confirmation timeout",
			err:      fmt.Errorf("waiting for receipt: %w", context.DeadlineExceeded),
			wantKind: domain.ErrKindConfirmationTimeout,
		},
		{
			name:     "node rejects for gas funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			wantKind: domain.ErrKindInsufficientGasFunds,
		},
		{
			name:     "nonce too low",
			err:      errors.New("nonce too low"),
			wantKind: domain.ErrKindTransferFailed,
		},
		{
			name:     "replacement underpriced",
			err:      errors.New("replacement transaction underpriced"),
			wantKind: domain.ErrKindTransferFailed,
		},
		{
			name:     "already known",
			err:      errors.New("already known"),
			wantKind: domain.ErrKindTransferFailed,
		},
		{
			name:     "unrecognized node error defaults to transfer failure",
			err:      errors.New("method handler crashed"),
			wantKind: domain.ErrKindTransferFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapRPCError("failed to send transaction", tt.err)
			assert.Equal(t, tt.wantKind, mapped.Kind)
			assert.ErrorIs(t, mapped, tt.err)
		})
	}
}
