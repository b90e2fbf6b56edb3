package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/custody/pkg/config"
)

type fakeWebhookService struct {
	validSignature string
	handleErr      error
	handled        [][]byte
}

func (f *fakeWebhookService) VerifySignature(ctx context.Context, rawPayload []byte, signature string) bool {
	return signature == f.validSignature
}

func (f *fakeWebhookService) HandleDeposit(ctx context.Context, rawPayload []byte, headers http.Header) error {
	if f.handleErr != nil {
		return f.handleErr
	}
	f.handled = append(f.handled, rawPayload)
	return nil
}

func (f *fakeWebhookService) ProcessDeposit(ctx context.Context, rawPayload []byte) error {
	return nil
}

func newWebhookRouter(svc *fakeWebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(svc, config.WebhookConfig{SignatureHeader: "X-Webhook-Signature"}, zerolog.Nop())
	router.POST("/v1/webhooks/deposit", handler.HandleDeposit)
	return router
}

func postDeposit(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/deposit", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleDepositAcceptsVerifiedPayload(t *testing.T) {
	svc := &fakeWebhookService{validSignature: "good-sig"}
	router := newWebhookRouter(svc)

	rec := postDeposit(router, `{"tx_hash":"0x1"}`, "good-sig")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.handled, 1)
	assert.JSONEq(t, `{"tx_hash":"0x1"}`, string(svc.handled[0]))
}

func TestHandleDepositRejectsBadSignature(t *testing.T) {
	svc := &fakeWebhookService{validSignature: "good-sig"}
	router := newWebhookRouter(svc)

	rec := postDeposit(router, `{"tx_hash":"0x1"}`, "bad-sig")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svc.handled, "unverified payloads never reach processing")
}

func TestHandleDepositRejectsMissingSignature(t *testing.T) {
	svc := &fakeWebhookService{validSignature: "good-sig"}
	router := newWebhookRouter(svc)

	rec := postDeposit(router, `{"tx_hash":"0x1"}`, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleDepositFailsWhenQueueUnavailable(t *testing.T) {
	svc := &fakeWebhookService{validSignature: "good-sig", handleErr: errors.New("database down")}
	router := newWebhookRouter(svc)

	rec := postDeposit(router, `{"tx_hash":"0x1"}`, "good-sig")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
