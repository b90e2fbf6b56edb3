package withdrawalservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/domain/interfaces"
	"github.com/tradepulse/custody/internal/repositories/accountrepo"
	"github.com/tradepulse/custody/internal/repositories/withdrawalrepo"
	"github.com/tradepulse/custody/pkg/config"
)

type withdrawalService struct {
	withdrawalRepo withdrawalrepo.IWithdrawalRepository
	accountRepo    accountrepo.IAccountRepository
	transfers      interfaces.TransferRegistry
	notifier       interfaces.Notifier
	broadcaster    interfaces.StatusBroadcaster
	cfg            config.WithdrawalConfig
	logger         zerolog.Logger
	now            func() time.Time
}

func New(
	withdrawalRepo withdrawalrepo.IWithdrawalRepository,
	accountRepo accountrepo.IAccountRepository,
	transfers interfaces.TransferRegistry,
	notifier interfaces.Notifier,
	broadcaster interfaces.StatusBroadcaster,
	cfg config.WithdrawalConfig,
	logger zerolog.Logger,
) IWithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		accountRepo:    accountRepo,
		transfers:      transfers,
		notifier:       notifier,
		broadcaster:    broadcaster,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *withdrawalService) Create(ctx context.Context, w *domain.Withdrawal) error {
	if w.AmountCents <= 0 {
		return fmt.Errorf("withdrawal amount must be positive")
	}
	if _, err := s.accountRepo.GetAccount(ctx, w.AccountID); err != nil {
		return err
	}
	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return err
	}
	s.broadcaster.WithdrawalUpdated(w)
	return nil
}

func (s *withdrawalService) Get(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error) {
	return s.withdrawalRepo.GetByID(ctx, withdrawalID)
}

func (s *withdrawalService) Process(ctx context.Context, withdrawalID, approverID string) (*domain.WithdrawalResult, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	// Duplicate suppression happens before the lock so a double-submitted
	// request form never reaches the transfer step twice.
	since := s.now().Add(-s.cfg.DuplicateWindow)
	dup, err := s.withdrawalRepo.HasRecentDuplicate(ctx, w.AccountID, w.AmountCents, w.DestinationAddress, since, w.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, domain.NewWithdrawalError(domain.ErrKindDuplicateRequest,
			"an identical withdrawal request is already in flight")
	}

	// The conditional pending->processing transition is the concurrency
	// guard: only one of two concurrent approvals passes this point.
	claimed, err := s.withdrawalRepo.ClaimPending(ctx, withdrawalID, approverID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.WithdrawalUpdated(claimed)

	s.logger.Info().
		Str("withdrawal_id", withdrawalID).
		Str("approver_id", approverID).
		Int64("amount_cents", claimed.AmountCents).
		Str("network", claimed.Network).
		Msg("Withdrawal claimed for processing")

	balance, reserved, err := s.accountRepo.AvailableBalance(ctx, claimed.AccountID, claimed.ID)
	if err != nil {
		s.failWithdrawal(ctx, claimed, fmt.Sprintf("balance check failed: %v", err))
		return nil, err
	}
	available := balance - reserved
	if claimed.AmountCents > available {
		shortfall := claimed.AmountCents - available
		reason := fmt.Sprintf("insufficient balance: available %d cents, requested %d cents", available, claimed.AmountCents)
		// Validation failure, not a transfer failure: back to pending so
		// the request can be retried once the balance allows it.
		if err := s.withdrawalRepo.ResetToPending(ctx, claimed.ID, reason); err != nil {
			s.logger.Err(err).Str("withdrawal_id", claimed.ID).Msg("Failed to reset withdrawal to pending")
		}
		claimed.Status = domain.WithdrawalStatusPending
		s.broadcaster.WithdrawalUpdated(claimed)
		return nil, &domain.WithdrawalError{
			Kind:           domain.ErrKindInsufficientBalance,
			Message:        reason,
			ShortfallCents: shortfall,
		}
	}

	client, err := s.transfers.ForNetwork(claimed.Network)
	if err != nil {
		s.failWithdrawal(ctx, claimed, err.Error())
		return nil, domain.WrapWithdrawalError(domain.ErrKindTransferFailed,
			"unsupported network", err)
	}

	// The transfer runs outside any database transaction: it can take
	// minutes and must not hold row locks while it waits.
	receipt, err := client.Transfer(ctx, claimed.DestinationAddress, claimed.AmountCents)
	if err != nil {
		return nil, s.handleTransferError(ctx, claimed, err)
	}

	newBalance, err := s.withdrawalRepo.CompleteWithDebit(ctx, claimed.ID, claimed.AccountID, claimed.AmountCents, receipt.TxHash)
	if err != nil {
		// Funds left the custodial wallet but the ledger commit failed.
		// Keep the record in processing with the hash attached so the
		// reconciliation sweep (or an operator) resolves it; never mark
		// failed here.
		s.logger.Error().Err(err).
			Str("withdrawal_id", claimed.ID).
			Str("tx_hash", receipt.TxHash).
			Msg("Ledger commit failed after confirmed transfer")
		if hashErr := s.withdrawalRepo.SetTxHash(ctx, claimed.ID, receipt.TxHash); hashErr != nil {
			s.logger.Err(hashErr).Str("withdrawal_id", claimed.ID).Msg("Failed to persist tx hash")
		}
		return nil, err
	}

	processedAt := s.now()
	claimed.Status = domain.WithdrawalStatusCompleted
	claimed.TxHash = receipt.TxHash
	claimed.ProcessedAt = &processedAt
	s.broadcaster.WithdrawalUpdated(claimed)

	// Post-commit notification is best effort; the financial transaction
	// stands regardless.
	if err := s.notifier.NotifyWithdrawalCompleted(ctx, claimed, receipt.TxHash); err != nil {
		s.logger.Warn().Err(err).Str("withdrawal_id", claimed.ID).Msg("Completion notification failed")
	}

	s.logger.Info().
		Str("withdrawal_id", claimed.ID).
		Str("tx_hash", receipt.TxHash).
		Int64("new_balance_cents", newBalance).
		Msg("Withdrawal completed")

	return &domain.WithdrawalResult{
		WithdrawalID:    claimed.ID,
		TxHash:          receipt.TxHash,
		NewBalanceCents: newBalance,
	}, nil
}

func (s *withdrawalService) handleTransferError(ctx context.Context, w *domain.Withdrawal, err error) error {
	kind := domain.KindOf(err)

	if kind == domain.ErrKindConfirmationTimeout {
		// The transaction may still confirm. Keep the record in processing
		// and persist the hash so the reconciliation sweep can resolve it;
		// assuming failure here could double-spend.
		var werr *domain.WithdrawalError
		if errors.As(err, &werr) && werr.TxHash != "" {
			if hashErr := s.withdrawalRepo.SetTxHash(ctx, w.ID, werr.TxHash); hashErr != nil {
				s.logger.Err(hashErr).Str("withdrawal_id", w.ID).Msg("Failed to persist tx hash")
			}
		}
		s.logger.Warn().
			Str("withdrawal_id", w.ID).
			Msg("Transfer unconfirmed at timeout, leaving withdrawal in processing")
		return err
	}

	// Broadcast never happened or was rejected: the ledger is untouched,
	// so failed is a safe terminal state.
	s.failWithdrawal(ctx, w, err.Error())
	return err
}

func (s *withdrawalService) failWithdrawal(ctx context.Context, w *domain.Withdrawal, reason string) {
	if err := s.withdrawalRepo.MarkFailed(ctx, w.ID, reason); err != nil {
		s.logger.Err(err).Str("withdrawal_id", w.ID).Msg("Failed to mark withdrawal failed")
		return
	}
	w.Status = domain.WithdrawalStatusFailed
	w.FailureReason = reason
	s.broadcaster.WithdrawalUpdated(w)
	if err := s.notifier.NotifyWithdrawalFailed(ctx, w, reason); err != nil {
		s.logger.Warn().Err(err).Str("withdrawal_id", w.ID).Msg("Failure notification failed")
	}
}

func (s *withdrawalService) Reject(ctx context.Context, withdrawalID, approverID, reason string) error {
	if err := s.withdrawalRepo.MarkRejected(ctx, withdrawalID, approverID, reason); err != nil {
		return err
	}
	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err == nil {
		s.broadcaster.WithdrawalUpdated(w)
	}
	s.logger.Info().
		Str("withdrawal_id", withdrawalID).
		Str("approver_id", approverID).
		Str("reason", reason).
		Msg("Withdrawal rejected")
	return nil
}

func (s *withdrawalService) ReconcileStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	stale, err := s.withdrawalRepo.ListStaleProcessing(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stale {
		w := stale[i]
		if s.reconcileOne(ctx, &w) {
			resolved++
		}
	}
	return resolved, nil
}

func (s *withdrawalService) reconcileOne(ctx context.Context, w *domain.Withdrawal) bool {
	log := s.logger.With().Str("withdrawal_id", w.ID).Logger()

	if w.TxHash == "" {
		// No broadcast hash was ever recorded: we cannot prove anything
		// about chain state, so this needs an operator.
		log.Warn().Msg("Stale processing withdrawal without tx hash, manual resolution required")
		if err := s.notifier.NotifyWithdrawalFailed(ctx, w, "stale withdrawal requires manual resolution"); err != nil {
			log.Warn().Err(err).Msg("Stale-withdrawal alert failed")
		}
		return false
	}

	client, err := s.transfers.ForNetwork(w.Network)
	if err != nil {
		log.Err(err).Msg("No transfer client for stale withdrawal")
		return false
	}

	receipt, err := client.ConfirmedTransfer(ctx, w.TxHash)
	if err != nil {
		if domain.KindOf(err) == domain.ErrKindTransferFailed {
			// Confirmed on chain but reverted: no funds moved.
			s.failWithdrawal(ctx, w, "transaction reverted on chain")
			return true
		}
		log.Warn().Err(err).Msg("Receipt lookup failed during reconciliation")
		return false
	}

	if receipt == nil {
		// The hash never made it onto the chain inside the staleness
		// window; safe to let the request be re-approved.
		if err := s.withdrawalRepo.ResetToPending(ctx, w.ID, "broadcast transaction not found on chain"); err != nil {
			log.Err(err).Msg("Failed to reset stale withdrawal")
			return false
		}
		w.Status = domain.WithdrawalStatusPending
		s.broadcaster.WithdrawalUpdated(w)
		log.Info().Msg("Stale withdrawal reset to pending")
		return true
	}

	newBalance, err := s.withdrawalRepo.CompleteWithDebit(ctx, w.ID, w.AccountID, w.AmountCents, receipt.TxHash)
	if err != nil {
		log.Err(err).Msg("Failed to commit reconciled withdrawal")
		return false
	}
	processedAt := s.now()
	w.Status = domain.WithdrawalStatusCompleted
	w.TxHash = receipt.TxHash
	w.ProcessedAt = &processedAt
	s.broadcaster.WithdrawalUpdated(w)
	log.Info().
		Str("tx_hash", receipt.TxHash).
		Int64("new_balance_cents", newBalance).
		Msg("Stale withdrawal reconciled against chain state")
	return true
}

func (s *withdrawalService) RunReconciler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReconcileEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolved, err := s.ReconcileStale(ctx)
			if err != nil {
				s.logger.Err(err).Msg("Reconciliation sweep failed")
				continue
			}
			if resolved > 0 {
				s.logger.Info().Int("resolved", resolved).Msg("Reconciliation sweep resolved stale withdrawals")
			}
		}
	}
}
