package api

import (
	"net/http"
	"time"

	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) SyncTemplatesHandler(c *gin.Context) {
	user := currentUser(c)

	var body models.TemplateSyncRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	result, err := h.Sync.UpsertTemplates(c.Request.Context(), user.ID, body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) SyncPullHandler(c *gin.Context) {
	user := currentUser(c)

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp, expected RFC3339"})
			return
		}
		since = &parsed
	}

	cards, err := h.Sync.Pull(c.Request.Context(), user.ID, since)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (h *Handler) SyncConfirmHandler(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		Items []models.SyncConfirmItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	confirmed, err := h.Sync.Confirm(c.Request.Context(), user.ID, body.Items)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed})
}

func (h *Handler) SyncPushHandler(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		Cards []models.SyncPushCard `json:"cards"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	result, err := h.Sync.Push(c.Request.Context(), user.ID, body.Cards)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.detectDeckLanguages(c, user.ID, body.Cards)

	c.JSON(http.StatusOK, result)
}

// detectDeckLanguages fills in the language pair of decks the push touched,
// once they have cards to infer from. Detection failures are logged and
// swallowed; a push must not fail because language inference did.
func (h *Handler) detectDeckLanguages(c *gin.Context, userID string, pushed []models.SyncPushCard) {
	if h.LLM == nil || len(pushed) == 0 {
		return
	}
	ctx := c.Request.Context()

	seen := make(map[int64]bool, len(pushed))
	for _, card := range pushed {
		if seen[card.AnkiDeckID] {
			continue
		}
		seen[card.AnkiDeckID] = true

		var deck models.Deck
		if err := h.DB.Where("anki_deck_id = ? AND user_id = ?", card.AnkiDeckID, userID).First(&deck).Error; err != nil {
			continue
		}
		if deck.SourceLanguage != nil && deck.TargetLanguage != nil {
			continue
		}

		var cards []models.Card
		err := h.DB.
			Where("deck_id = ? AND user_id = ? AND status <> ?", deck.ID, userID, models.CardStatusDeleted).
			Order("created_at DESC").Limit(20).
			Find(&cards).Error
		if err != nil || len(cards) == 0 {
			continue
		}

		samples := make([]models.FieldMap, 0, len(cards))
		for _, card := range cards {
			samples = append(samples, card.Fields)
		}

		detected, err := h.LLM.DetectDeckLanguages(ctx, samples)
		if err != nil {
			zap.L().Warn("Deck language detection failed", zap.String("deckID", deck.ID), zap.Error(err))
			continue
		}

		deck.SourceLanguage = &detected.SourceLanguage
		deck.TargetLanguage = &detected.TargetLanguage
		if err := h.DB.Save(&deck).Error; err != nil {
			zap.L().Warn("Failed to store detected deck languages", zap.String("deckID", deck.ID), zap.Error(err))
		}
	}
}
