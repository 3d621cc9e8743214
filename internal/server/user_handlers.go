package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
)

// UserStatusRequest updates an account's status
type UserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// findUserByRef resolves a path reference to a user. Telegram-originated
// accounts are addressed by numeric Telegram ID, browser accounts by their
// record ID.
func (s *Server) findUserByRef(ref string) (*models.User, error) {
	var user models.User

	if telegramID, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error; err == nil {
			return &user, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := s.db.Where("id = ?", ref).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// @Summary List users
// @Description List all users (admin only)
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// @Summary List pending users
// @Description List accounts waiting for approval (admin only)
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Router /users/pending [get]
func (s *Server) listPendingUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Where("status = ?", models.StatusPending).Order("created_at ASC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list pending users")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// @Summary Update user status
// @Description Approve, block or reset an account (admin only)
// @Tags users
// @Accept json
// @Produce json
// @Param telegram_id path string true "Telegram ID or user ID"
// @Param request body UserStatusRequest true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /users/{telegram_id}/status [put]
func (s *Server) updateUserStatus(c *gin.Context) {
	var req UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Status is required"})
		return
	}

	switch req.Status {
	case models.StatusActive, models.StatusBlocked, models.StatusPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid status"})
		return
	}

	user, err := s.findUserByRef(c.Param("telegram_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if err := s.db.Model(user).Update("status", req.Status).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update user status")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("status", req.Status).
		Str("updated_by", sessionData.UserID).
		Msg("User status updated")

	c.JSON(http.StatusOK, gin.H{"message": "Updated", "status": req.Status})
}
