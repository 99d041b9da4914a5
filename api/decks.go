package api

import (
	"net/http"

	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *Handler) ListDecksHandler(c *gin.Context) {
	user := currentUser(c)

	var decks []models.Deck
	if err := h.DB.Where("user_id = ?", user.ID).Find(&decks).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, decks)
}

func (h *Handler) GetDeckHandler(c *gin.Context) {
	user := currentUser(c)

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, deck)
}

func (h *Handler) UpdateDeckHandler(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		SourceLanguage *string `json:"source_language"`
		TargetLanguage *string `json:"target_language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}

	if body.SourceLanguage != nil {
		deck.SourceLanguage = body.SourceLanguage
	}
	if body.TargetLanguage != nil {
		deck.TargetLanguage = body.TargetLanguage
	}
	if err := h.DB.Save(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, deck)
}

func (h *Handler) ListNoteTypesHandler(c *gin.Context) {
	user := currentUser(c)

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}

	var noteTypes []models.NoteType
	err := h.DB.
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal") }).
		Where("deck_id = ?", deck.ID).
		Find(&noteTypes).Error
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, noteTypes)
}
