package api

import (
	"net/http"
	"strings"

	"github.com/ericstoecker/anki-translator/auth"
	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// AuthRequired resolves the bearer token to a User and stores it on the
// request context. Everything behind it can assume an owner.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(strings.TrimPrefix(header, prefix), h.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		var user models.User
		if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(userContextKey, &user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	value, _ := c.Get(userContextKey)
	user, _ := value.(*models.User)
	return user
}
