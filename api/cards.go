package api

import (
	"net/http"
	"strconv"

	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
)

type createCardRequest struct {
	DeckID         string          `json:"deck_id" binding:"required"`
	NoteTypeID     string          `json:"note_type_id" binding:"required"`
	Fields         models.FieldMap `json:"fields" binding:"required"`
	Tags           string          `json:"tags"`
	SourceWord     *string         `json:"source_word"`
	SourceLanguage *string         `json:"source_language"`
	TargetLanguage *string         `json:"target_language"`
}

func (h *Handler) ListCardsHandler(c *gin.Context) {
	user := currentUser(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := h.DB.Where("user_id = ?", user.ID)
	if deckID := c.Query("deck_id"); deckID != "" {
		query = query.Where("deck_id = ?", deckID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var cards []models.Card
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&cards).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *Handler) CreateCardHandler(c *gin.Context) {
	user := currentUser(c)

	var body createCardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", body.DeckID, user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}

	var noteType models.NoteType
	if err := h.DB.Preload("Fields").Where("id = ? AND deck_id = ?", body.NoteTypeID, deck.ID).First(&noteType).Error; err != nil {
		h.handleError(c, err)
		return
	}

	// Field names must belong to the note type; an unknown key would sync a
	// value Anki has no slot for.
	declared := make(map[string]bool, len(noteType.Fields))
	for _, f := range noteType.Fields {
		declared[f.Name] = true
	}
	for name := range body.Fields {
		if !declared[name] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown field name: " + name})
			return
		}
	}

	card := models.Card{
		DeckID:         deck.ID,
		NoteTypeID:     noteType.ID,
		UserID:         user.ID,
		Fields:         body.Fields,
		Tags:           body.Tags,
		SourceWord:     body.SourceWord,
		SourceLanguage: body.SourceLanguage,
		TargetLanguage: body.TargetLanguage,
		Status:         models.CardStatusDraft,
		Source:         models.CardSourceApp,
	}
	if err := h.DB.Create(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *Handler) GetCardHandler(c *gin.Context) {
	user := currentUser(c)

	var card models.Card
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) UpdateCardHandler(c *gin.Context) {
	user := currentUser(c)

	var body struct {
		Fields models.FieldMap `json:"fields"`
		Tags   *string         `json:"tags"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var card models.Card
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}

	if body.Fields != nil {
		card.Fields = body.Fields
	}
	if body.Tags != nil {
		card.Tags = *body.Tags
	}
	if err := h.DB.Save(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// AcceptCardHandler moves a draft card into the sync queue; the next pull
// from the Anki add-on will deliver it.
func (h *Handler) AcceptCardHandler(c *gin.Context) {
	user := currentUser(c)

	var card models.Card
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}

	if err := card.Accept(); err != nil {
		h.handleError(c, err)
		return
	}
	if err := h.DB.Save(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) DeleteCardHandler(c *gin.Context) {
	user := currentUser(c)

	var card models.Card
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}

	card.MarkDeleted()
	if err := h.DB.Save(&card).Error; err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
