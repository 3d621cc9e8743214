package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/auth"
	"github.com/davomat-dev/davomat/internal/models"
)

// LoginRequest represents a browser login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterRequest represents a browser account request. Password is
// optional; when omitted an initial password is generated and returned in
// the confirmation message.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

// AuthCheckResponse is the persisted-token validation response
type AuthCheckResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// @Summary Login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required"})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observeAuthFailure("login")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if user.PasswordHash == "" || auth.VerifyPassword(req.Password, user.PasswordHash) != nil {
		observeAuthFailure("login")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
		return
	}

	if user.Status == models.StatusBlocked {
		c.JSON(http.StatusForbidden, gin.H{"detail": "User blocked"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: &user})
}

// @Summary Register
// @Description Request a browser account; an admin must approve it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username is required"})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check username")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already taken"})
		return
	}

	message := "Registration received. An admin must approve your account."

	password := req.Password
	if password == "" {
		raw := make([]byte, 8)
		if _, err := rand.Read(raw); err != nil {
			s.logger.Error().Err(err).Msg("Failed to generate password")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		password = hex.EncodeToString(raw)
		message = "Registration received. Your initial password is " + password + ". An admin must approve your account."
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		FirstName:    req.Username,
		Status:       models.StatusPending,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Browser account requested")

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// @Summary Validate persisted token
// @Description Reports whether the presented bearer token resolves to a usable account
// @Tags auth
// @Produce json
// @Success 200 {object} AuthCheckResponse
// @Router /auth/check [get]
func (s *Server) authCheck(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.JSON(http.StatusOK, AuthCheckResponse{Authenticated: false})
		return
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusOK, AuthCheckResponse{Authenticated: false})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, AuthCheckResponse{Authenticated: false})
		return
	}

	// A token for an account that can no longer use the API is as good as
	// no token
	if user.Status == models.StatusBlocked || (user.Status == models.StatusPending && !user.IsAdmin) {
		c.JSON(http.StatusOK, AuthCheckResponse{Authenticated: false})
		return
	}

	c.JSON(http.StatusOK, AuthCheckResponse{Authenticated: true, User: &user})
}

// @Summary Get current user
// @Description Get the authenticated user's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{}
// @Router /users/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication required"})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Admin flag
// @Description Reports whether the authenticated user is an admin
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /users/is-admin [get]
func (s *Server) isAdmin(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_admin": sessionData.IsAdmin})
}
