package api

import (
	"net/http"

	"github.com/ericstoecker/anki-translator/integrations"
	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type translateRequest struct {
	Word           string `json:"word" binding:"required"`
	DeckID         string `json:"deck_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	NativeLanguage string `json:"native_language"`
}

// TranslateHandler returns 1-3 translation options for a word. No card
// formatting happens here.
func (h *Handler) TranslateHandler(c *gin.Context) {
	user := currentUser(c)

	var body translateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	sourceLang := body.SourceLanguage
	targetLang := body.TargetLanguage
	if body.DeckID != "" && (sourceLang == "" || targetLang == "") {
		var deck models.Deck
		if err := h.DB.Where("id = ? AND user_id = ?", body.DeckID, user.ID).First(&deck).Error; err == nil {
			if sourceLang == "" && deck.SourceLanguage != nil {
				sourceLang = *deck.SourceLanguage
			}
			if targetLang == "" && deck.TargetLanguage != nil {
				targetLang = *deck.TargetLanguage
			}
		}
	}

	nativeLang := body.NativeLanguage
	if nativeLang == "" && user.NativeLanguage != nil {
		nativeLang = *user.NativeLanguage
	}

	translations, err := h.LLM.TranslateWord(c.Request.Context(), body.Word, sourceLang, targetLang, nativeLang)
	if err != nil {
		zap.L().Error("Translation failed", zap.String("word", body.Word), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Translation service error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"translations": translations})
}

type formatCardRequest struct {
	Word           string `json:"word" binding:"required"`
	Translation    string `json:"translation" binding:"required"`
	DeckID         string `json:"deck_id" binding:"required"`
	PartOfSpeech   string `json:"part_of_speech"`
	Context        string `json:"context"`
	NativeLanguage string `json:"native_language"`
}

// FormatCardHandler turns a chosen translation into field values matching
// the deck's existing formatting. No re-translation.
func (h *Handler) FormatCardHandler(c *gin.Context) {
	user := currentUser(c)

	var body formatCardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var deck models.Deck
	if err := h.DB.Where("id = ? AND user_id = ?", body.DeckID, user.ID).First(&deck).Error; err != nil {
		h.handleError(c, err)
		return
	}

	sourceLang := ""
	if deck.SourceLanguage != nil {
		sourceLang = *deck.SourceLanguage
	}
	targetLang := ""
	if deck.TargetLanguage != nil {
		targetLang = *deck.TargetLanguage
	}

	var noteType models.NoteType
	err := h.DB.
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal") }).
		Where("deck_id = ?", deck.ID).
		First(&noteType).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No note type found for this deck"})
		return
	}

	var exampleCards []models.Card
	err = h.DB.
		Where("deck_id = ? AND user_id = ? AND status <> ?", deck.ID, user.ID, models.CardStatusDeleted).
		Order("created_at DESC").Limit(h.CardExampleCount).
		Find(&exampleCards).Error
	if err != nil {
		h.handleError(c, err)
		return
	}
	examples := make([]models.FieldMap, 0, len(exampleCards))
	for _, card := range exampleCards {
		examples = append(examples, card.Fields)
	}

	// Optional native translation; failures here are non-fatal.
	nativeTranslation := ""
	if body.NativeLanguage != "" {
		translated, err := h.LLM.TranslateNative(c.Request.Context(), body.Word, sourceLang, body.NativeLanguage)
		if err != nil {
			zap.L().Warn("Native translation failed", zap.String("word", body.Word), zap.Error(err))
		} else {
			nativeTranslation = translated
		}
	}

	fields, err := h.LLM.FormatCardFields(c.Request.Context(), integrations.FormatCardParams{
		Word:              body.Word,
		Translation:       body.Translation,
		FieldNames:        noteType.FieldNames(),
		ExampleCards:      examples,
		SourceLanguage:    sourceLang,
		TargetLanguage:    targetLang,
		PartOfSpeech:      body.PartOfSpeech,
		NativeTranslation: nativeTranslation,
		Context:           body.Context,
	})
	if err != nil {
		zap.L().Error("Card formatting failed", zap.String("word", body.Word), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Card formatting service error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fields":       fields,
		"note_type_id": noteType.ID,
		"deck_id":      deck.ID,
	})
}
