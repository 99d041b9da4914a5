package api

import (
	"errors"
	"net/http"

	"github.com/ericstoecker/anki-translator/auth"
	"github.com/ericstoecker/anki-translator/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) RegisterHandler(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	user := models.User{Username: body.Username, HashedPassword: hash}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) LoginHandler(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	var user models.User
	err := h.DB.Where("username = ?", body.Username).First(&user).Error
	if err != nil || !auth.VerifyPassword(body.Password, user.HashedPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID, h.JWTSecret, h.TokenValidity)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) MeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *Handler) UpdateMeHandler(c *gin.Context) {
	var body struct {
		NativeLanguage *string `json:"native_language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	user := currentUser(c)
	if body.NativeLanguage != nil {
		user.NativeLanguage = body.NativeLanguage
		if err := h.DB.Save(user).Error; err != nil {
			h.handleError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, user)
}
