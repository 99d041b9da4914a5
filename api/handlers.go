package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ericstoecker/anki-translator/duplicates"
	"github.com/ericstoecker/anki-translator/integrations"
	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/ericstoecker/anki-translator/syncer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	DB       *gorm.DB
	Sync     *syncer.Engine
	Detector *duplicates.Detector
	LLM      *integrations.LLMClient

	JWTSecret     []byte
	TokenValidity time.Duration

	// Number of recent cards handed to the model for formatting-style
	// derivation.
	CardExampleCount int
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleError maps domain errors onto HTTP status codes. Anything
// unrecognised is a 500 and gets logged.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrServiceUnavailable):
		zap.L().Error("External service failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		zap.L().Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
