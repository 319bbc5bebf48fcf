package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /register, POST /users
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string  `json:"email" binding:"required,email"`
		Password  string  `json:"password" binding:"required"`
		FirstName string  `json:"first_name" binding:"max=150"`
		LastName  string  `json:"last_name" binding:"max=150"`
		Phone     *string `json:"phone" binding:"omitempty,max=35"`
		City      *string `json:"city" binding:"omitempty,max=100"`
		Avatar    *string `json:"avatar"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	user, pair, err := ah.authService.RegisterUser(dbcOf(c), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
		AvatarURL: firstNonNil(req.AvatarURL, req.Avatar),
	})
	if err != nil {
		response.RespondAPIError(c, err, "registration_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":    services.NewPublicUser(user),
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
	})
}

// POST /login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	pair, err := ah.authService.LoginUser(dbcOf(c), req.Email, req.Password)
	if err != nil {
		response.RespondAPIError(c, err, "invalid_credentials")
		return
	}
	respondTokens(c, pair)
}

// POST /refresh
func (ah *AuthHandler) Refresh(c *gin.Context) {
	pair, err := ah.authService.RefreshUser(dbcOf(c))
	if err != nil {
		response.RespondAPIError(c, err, "refresh_failed")
		return
	}
	respondTokens(c, pair)
}

// POST /logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.LogoutUser(dbcOf(c)); err != nil {
		response.RespondAPIError(c, err, "logout_failed")
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func respondTokens(c *gin.Context, pair *services.TokenPair) {
	response.RespondOK(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	})
}
