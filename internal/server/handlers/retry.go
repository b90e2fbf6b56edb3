package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradepulse/custody/internal/application/retryservice"
	"github.com/tradepulse/custody/internal/domain"
)

type RetryHandler struct {
	retrySvc retryservice.IRetryService
	logger   zerolog.Logger
}

func NewRetryHandler(retrySvc retryservice.IRetryService, logger zerolog.Logger) *RetryHandler {
	return &RetryHandler{
		retrySvc: retrySvc,
		logger:   logger,
	}
}

func (h *RetryHandler) ListDeadLetters(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	records, err := h.retrySvc.DeadLetters(c.Request.Context(), limit)
	if err != nil {
		h.logger.Err(err).Msg("Failed to list dead-letter records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if records == nil {
		records = []domain.RetryRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *RetryHandler) ReplayDeadLetter(c *gin.Context) {
	retryID := c.Param("id")
	if err := h.retrySvc.Replay(c.Request.Context(), retryID); err != nil {
		if errors.Is(err, domain.ErrRetryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dead-letter record not found"})
			return
		}
		h.logger.Err(err).Str("retry_id", retryID).Msg("Failed to replay dead-letter record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "requeued"})
}
