package api

import (
	"net/http"

	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
)

type duplicateCheckRequest struct {
	Word           string `json:"word" binding:"required"`
	DeckID         string `json:"deck_id" binding:"required"`
	SourceLanguage string `json:"source_language"`
}

// CheckDuplicateHandler runs the duplicate pipeline for a word the user is
// about to turn into a card. Unlike the advisory use during language
// detection, service failures here surface to the caller.
func (h *Handler) CheckDuplicateHandler(c *gin.Context) {
	user := currentUser(c)

	var body duplicateCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", body.DeckID, user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.Detector.Check(c.Request.Context(), user.ID, deck.ID, body.Word, body.SourceLanguage)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
