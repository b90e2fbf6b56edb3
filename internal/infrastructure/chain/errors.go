package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/tradepulse/custody/internal/domain"
)

// mapRPCError translates node transport errors into the closed error-kind
// set. The string matching on node error text stays inside this boundary;
// callers only ever see the kind.
func mapRPCError(message string, err error) *domain.WithdrawalError {
	kind := domain.ErrKindTransferFailed

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.ErrKindConfirmationTimeout
	case containsAny(err, "insufficient funds"):
		kind = domain.ErrKindInsufficientGasFunds
	case containsAny(err, "nonce too low", "replacement transaction underpriced", "already known"):
		kind = domain.ErrKindTransferFailed
	}

	return domain.WrapWithdrawalError(kind, message, err)
}

func containsAny(err error, fragments ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range fragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
