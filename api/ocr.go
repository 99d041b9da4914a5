package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OCRHandler extracts words from an uploaded image (a textbook page, a menu,
// a sign) so the user can pick which ones become cards.
func (h *Handler) OCRHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		h.handleError(c, err)
		return
	}

	mediaType := fileHeader.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	result, err := h.LLM.ExtractWords(c.Request.Context(), imageBytes, mediaType)
	if err != nil {
		zap.L().Error("OCR failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "OCR service error"})
		return
	}
	c.JSON(http.StatusOK, result)
}
