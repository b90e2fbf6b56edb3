package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/custody/internal/domain"
)

type fakeWithdrawalService struct {
	createErr  error
	getResult  *domain.Withdrawal
	getErr     error
	processRes *domain.WithdrawalResult
	processErr error
	rejectErr  error
}

func (f *fakeWithdrawalService) Create(ctx context.Context, w *domain.Withdrawal) error {
	if f.createErr != nil {
		return f.createErr
	}
	w.ID = "w1"
	w.Status = domain.WithdrawalStatusPending
	return nil
}

func (f *fakeWithdrawalService) Get(ctx context.Context, withdrawalID string) (*domain.Withdrawal, error) {
	return f.getResult, f.getErr
}

func (f *fakeWithdrawalService) Process(ctx context.Context, withdrawalID, approverID string) (*domain.WithdrawalResult, error) {
	return f.processRes, f.processErr
}

func (f *fakeWithdrawalService) Reject(ctx context.Context, withdrawalID, approverID, reason string) error {
	return f.rejectErr
}

func (f *fakeWithdrawalService) ReconcileStale(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeWithdrawalService) RunReconciler(ctx context.Context) {}

func newWithdrawalRouter(svc *fakeWithdrawalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWithdrawalHandler(svc, zerolog.Nop())
	router.POST("/withdrawals", handler.CreateWithdrawal)
	router.GET("/withdrawals/:id", handler.GetWithdrawal)
	router.POST("/withdrawals/:id/approve", handler.ApproveWithdrawal)
	router.POST("/withdrawals/:id/reject", handler.RejectWithdrawal)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateWithdrawal(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{})

	rec := doJSON(router, http.MethodPost, "/withdrawals", `{
		"account_id": "acct-1",
		"amount_cents": 50000,
		"destination_address": "0x1111111111111111111111111111111111111111",
		"network": "ethereum"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var w domain.Withdrawal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, domain.WithdrawalStatusPending, w.Status)
}

func TestCreateWithdrawalRejectsMissingFields(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{})

	rec := doJSON(router, http.MethodPost, "/withdrawals", `{"account_id": "acct-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWithdrawalUnknownAccount(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{createErr: domain.ErrAccountNotFound})

	rec := doJSON(router, http.MethodPost, "/withdrawals", `{
		"account_id": "missing",
		"amount_cents": 100,
		"destination_address": "0x1111111111111111111111111111111111111111",
		"network": "ethereum"
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWithdrawalNotFound(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{getErr: domain.ErrWithdrawalNotFound})

	rec := doJSON(router, http.MethodGet, "/withdrawals/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveWithdrawalStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "already processed conflicts",
			err:        domain.NewWithdrawalError(domain.ErrKindAlreadyProcessed, "withdrawal is not pending"),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "duplicate request conflicts",
			err:        domain.NewWithdrawalError(domain.ErrKindDuplicateRequest, "identical request in flight"),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "insufficient balance unprocessable",
			err:        &domain.WithdrawalError{Kind: domain.ErrKindInsufficientBalance, Message: "short", ShortfallCents: 1200},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "custodial funds exhausted",
			err:        domain.NewWithdrawalError(domain.ErrKindInsufficientCustodialFunds, "hot wallet empty"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "transfer failed",
			err:        domain.NewWithdrawalError(domain.ErrKindTransferFailed, "node rejected"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "confirmation timeout",
			err:        &domain.WithdrawalError{Kind: domain.ErrKindConfirmationTimeout, Message: "unconfirmed", TxHash: "0xpending"},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "not found",
			err:        domain.ErrWithdrawalNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newWithdrawalRouter(&fakeWithdrawalService{processErr: tt.err})
			rec := doJSON(router, http.MethodPost, "/withdrawals/w1/approve", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestApproveWithdrawalResponseBody(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{
		processErr: &domain.WithdrawalError{
			Kind:           domain.ErrKindInsufficientBalance,
			Message:        "insufficient balance",
			ShortfallCents: 1200,
		},
	})

	rec := doJSON(router, http.MethodPost, "/withdrawals/w1/approve", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_balance", body["error_kind"])
	assert.Equal(t, float64(1200), body["shortfall_cents"])
}

func TestApproveWithdrawalSuccess(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{
		processRes: &domain.WithdrawalResult{
			WithdrawalID:    "w1",
			TxHash:          "0xdeadbeef",
			NewBalanceCents: 50000,
		},
	})

	rec := doJSON(router, http.MethodPost, "/withdrawals/w1/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.WithdrawalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "0xdeadbeef", result.TxHash)
	assert.Equal(t, int64(50000), result.NewBalanceCents)
}

func TestRejectWithdrawalRequiresReason(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{})

	rec := doJSON(router, http.MethodPost, "/withdrawals/w1/reject", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectWithdrawal(t *testing.T) {
	router := newWithdrawalRouter(&fakeWithdrawalService{})

	rec := doJSON(router, http.MethodPost, "/withdrawals/w1/reject", `{"reason":"kyc flag"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
