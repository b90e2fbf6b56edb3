package retryservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/pkg/config"
)

type fakeRetryRepo struct {
	due          []domain.RetryRecord
	successes    []string
	reschedules  []rescheduleCall
	deadLetters  []deadLetterCall
	requeued     []string
	requeueErr   error
	deadRecords  []domain.RetryRecord
}

type rescheduleCall struct {
	id          string
	entry       domain.RetryError
	nextRetryAt time.Time
}

type deadLetterCall struct {
	id     string
	entry  domain.RetryError
	reason string
}

func (f *fakeRetryRepo) Create(ctx context.Context, r *domain.RetryRecord) error { return nil }

func (f *fakeRetryRepo) GetByID(ctx context.Context, id string) (*domain.RetryRecord, error) {
	return nil, domain.ErrRetryNotFound
}

func (f *fakeRetryRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.RetryRecord, error) {
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeRetryRepo) MarkSuccess(ctx context.Context, id string, at time.Time) error {
	f.successes = append(f.successes, id)
	return nil
}

func (f *fakeRetryRepo) RescheduleFailure(ctx context.Context, id string, entry domain.RetryError, nextRetryAt time.Time) error {
	f.reschedules = append(f.reschedules, rescheduleCall{id: id, entry: entry, nextRetryAt: nextRetryAt})
	return nil
}

func (f *fakeRetryRepo) MarkDeadLetter(ctx context.Context, id string, entry domain.RetryError, reason string) error {
	f.deadLetters = append(f.deadLetters, deadLetterCall{id: id, entry: entry, reason: reason})
	return nil
}

func (f *fakeRetryRepo) ListDeadLetters(ctx context.Context, limit int) ([]domain.RetryRecord, error) {
	return f.deadRecords, nil
}

func (f *fakeRetryRepo) Requeue(ctx context.Context, id string, at time.Time) error {
	if f.requeueErr != nil {
		return f.requeueErr
	}
	f.requeued = append(f.requeued, id)
	return nil
}

type fakeProcessor struct {
	err      error
	payloads [][]byte
}

func (f *fakeProcessor) ProcessDeposit(ctx context.Context, rawPayload []byte) error {
	f.payloads = append(f.payloads, rawPayload)
	return f.err
}

type fakeNotifier struct {
	deadLetterAlerts []string
}

func (f *fakeNotifier) NotifyWithdrawalCompleted(ctx context.Context, w *domain.Withdrawal, txHash string) error {
	return nil
}

func (f *fakeNotifier) NotifyWithdrawalFailed(ctx context.Context, w *domain.Withdrawal, reason string) error {
	return nil
}

func (f *fakeNotifier) NotifyDeadLetter(ctx context.Context, r *domain.RetryRecord) error {
	f.deadLetterAlerts = append(f.deadLetterAlerts, r.ID)
	return nil
}

type fakeBroadcaster struct {
	withdrawals []string
	deadLetters []string
}

func (f *fakeBroadcaster) WithdrawalUpdated(w *domain.Withdrawal) {
	f.withdrawals = append(f.withdrawals, w.ID)
}

func (f *fakeBroadcaster) DeadLettered(r *domain.RetryRecord) {
	f.deadLetters = append(f.deadLetters, r.ID)
}

func testConfig() config.RetryConfig {
	return config.RetryConfig{
		SweepInterval: time.Second,
		BatchSize:     50,
		MaxRetries:    10,
		BackoffBase:   time.Second,
	}
}

func newTestService(repo *fakeRetryRepo, proc *fakeProcessor, notifier *fakeNotifier, bc *fakeBroadcaster, cfg config.RetryConfig) (*retryService, time.Time) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &retryService{
		retryRepo:   repo,
		processor:   proc,
		notifier:    notifier,
		broadcaster: bc,
		cfg:         cfg,
		logger:      zerolog.Nop(),
		now:         func() time.Time { return now },
	}
	return svc, now
}

func depositRecord(id string, retryCount, maxRetries int) domain.RetryRecord {
	return domain.RetryRecord{
		ID:          id,
		WebhookType: domain.WebhookTypeDeposit,
		Payload:     []byte(`{"tx_hash":"0x1"}`),
		RetryCount:  retryCount,
		MaxRetries:  maxRetries,
		Status:      domain.RetryStatusRetrying,
	}
}

func TestSweepMarksSuccess(t *testing.T) {
	repo := &fakeRetryRepo{due: []domain.RetryRecord{depositRecord("r1", 2, 10)}}
	proc := &fakeProcessor{}
	svc, _ := newTestService(repo, proc, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

	succeeded, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, []string{"r1"}, repo.successes)
	assert.Empty(t, repo.reschedules)
	require.Len(t, proc.payloads, 1)
}

func TestSweepBackoffDoublesPerAttempt(t *testing.T) {
	tests := []struct {
		retryCount int
		wantDelay  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
	}

	for _, tt := range tests {
		repo := &fakeRetryRepo{due: []domain.RetryRecord{depositRecord("r1", tt.retryCount, 10)}}
		proc := &fakeProcessor{err: errors.New("still failing")}
		svc, now := newTestService(repo, proc, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

		_, err := svc.Sweep(context.Background())
		require.NoError(t, err)

		require.Len(t, repo.reschedules, 1)
		call := repo.reschedules[0]
		assert.Equal(t, now.Add(tt.wantDelay), call.nextRetryAt, "retry_count=%d", tt.retryCount)
		assert.Equal(t, tt.retryCount+1, call.entry.Attempt)
		assert.Equal(t, "still failing", call.entry.Error)
	}
}

func TestSweepDeadLettersAtMaxRetries(t *testing.T) {
	repo := &fakeRetryRepo{due: []domain.RetryRecord{depositRecord("r1", 9, 10)}}
	proc := &fakeProcessor{err: errors.New("permanent failure")}
	notifier := &fakeNotifier{}
	bc := &fakeBroadcaster{}
	svc, _ := newTestService(repo, proc, notifier, bc, testConfig())

	succeeded, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, succeeded)

	require.Len(t, repo.deadLetters, 1)
	assert.Equal(t, "r1", repo.deadLetters[0].id)
	assert.Equal(t, 10, repo.deadLetters[0].entry.Attempt)
	assert.Contains(t, repo.deadLetters[0].reason, "retries exhausted after 10 attempts")
	assert.Empty(t, repo.reschedules, "dead-lettered records are never rescheduled")

	assert.Equal(t, []string{"r1"}, notifier.deadLetterAlerts)
	assert.Equal(t, []string{"r1"}, bc.deadLetters)
}

func TestSweepReschedulesBelowMaxRetries(t *testing.T) {
	repo := &fakeRetryRepo{due: []domain.RetryRecord{depositRecord("r1", 8, 10)}}
	proc := &fakeProcessor{err: errors.New("transient")}
	svc, _ := newTestService(repo, proc, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

	_, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Empty(t, repo.deadLetters)
	require.Len(t, repo.reschedules, 1)
	assert.Equal(t, 9, repo.reschedules[0].entry.Attempt)
}

func TestSweepUnknownWebhookTypeFails(t *testing.T) {
	rec := depositRecord("r1", 0, 10)
	rec.WebhookType = "unknown"
	repo := &fakeRetryRepo{due: []domain.RetryRecord{rec}}
	svc, _ := newTestService(repo, &fakeProcessor{}, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

	_, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.reschedules, 1)
	assert.Contains(t, repo.reschedules[0].entry.Error, "unknown webhook type")
}

func TestReplayRequeuesDeadLetter(t *testing.T) {
	repo := &fakeRetryRepo{}
	svc, _ := newTestService(repo, &fakeProcessor{}, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

	require.NoError(t, svc.Replay(context.Background(), "r1"))
	assert.Equal(t, []string{"r1"}, repo.requeued)
}

func TestReplayPropagatesNotFound(t *testing.T) {
	repo := &fakeRetryRepo{requeueErr: domain.ErrRetryNotFound}
	svc, _ := newTestService(repo, &fakeProcessor{}, &fakeNotifier{}, &fakeBroadcaster{}, testConfig())

	err := svc.Replay(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRetryNotFound)
}
