package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/application/withdrawalservice"
	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/internal/server/middleware"
)

type WithdrawalHandler struct {
	withdrawalSvc withdrawalservice.IWithdrawalService
	logger        zerolog.Logger
}

func NewWithdrawalHandler(withdrawalSvc withdrawalservice.IWithdrawalService, logger zerolog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalSvc: withdrawalSvc,
		logger:        logger,
	}
}

type createWithdrawalRequest struct {
	AccountID          string `json:"account_id" binding:"required"`
	AmountCents        int64  `json:"amount_cents" binding:"required"`
	DestinationAddress string `json:"destination_address" binding:"required"`
	Network            string `json:"network" binding:"required"`
}

func (h *WithdrawalHandler) CreateWithdrawal(c *gin.Context) {
	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := &domain.Withdrawal{
		AccountID:          req.AccountID,
		AmountCents:        req.AmountCents,
		DestinationAddress: req.DestinationAddress,
		Network:            req.Network,
	}
	if err := h.withdrawalSvc.Create(c.Request.Context(), w); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, w)
}

func (h *WithdrawalHandler) GetWithdrawal(c *gin.Context) {
	w, err := h.withdrawalSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrWithdrawalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WithdrawalHandler) ApproveWithdrawal(c *gin.Context) {
	withdrawalID := c.Param("id")
	approverID := c.GetString(middleware.AdminIDKey)

	result, err := h.withdrawalSvc.Process(c.Request.Context(), withdrawalID, approverID)
	if err != nil {
		h.respondWithdrawalError(c, withdrawalID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type rejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *WithdrawalHandler) RejectWithdrawal(c *gin.Context) {
	withdrawalID := c.Param("id")
	approverID := c.GetString(middleware.AdminIDKey)

	var req rejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.withdrawalSvc.Reject(c.Request.Context(), withdrawalID, approverID, req.Reason); err != nil {
		h.respondWithdrawalError(c, withdrawalID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (h *WithdrawalHandler) respondWithdrawalError(c *gin.Context, withdrawalID string, err error) {
	if errors.Is(err, domain.ErrWithdrawalNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal not found"})
		return
	}

	var werr *domain.WithdrawalError
	if !errors.As(err, &werr) {
		h.logger.Err(err).Str("withdrawal_id", withdrawalID).Msg("Withdrawal operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{
		"error_kind": werr.Kind,
		"message":    werr.Message,
	}
	if werr.ShortfallCents > 0 {
		body["shortfall_cents"] = werr.ShortfallCents
	}
	if werr.TxHash != "" {
		body["tx_hash"] = werr.TxHash
	}

	status := http.StatusInternalServerError
	switch werr.Kind {
	case domain.ErrKindAlreadyProcessed, domain.ErrKindDuplicateRequest:
		status = http.StatusConflict
	case domain.ErrKindInsufficientBalance:
		status = http.StatusUnprocessableEntity
	case domain.ErrKindInsufficientCustodialFunds, domain.ErrKindInsufficientGasFunds, domain.ErrKindTransferFailed:
		status = http.StatusBadGateway
	case domain.ErrKindConfirmationTimeout:
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, body)
}
