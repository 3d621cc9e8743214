package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (s *Server) bindDateRange(c *gin.Context) (DateRangeRequest, bool) {
	var req DateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "start_date and end_date are required"})
		return req, false
	}
	if !validDate(req.StartDate) || !validDate(req.EndDate) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid date"})
		return req, false
	}
	return req, true
}

// @Summary My statistics
// @Tags statistics
// @Accept json
// @Produce json
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {object} statistics.Summary
// @Router /statistics/me [post]
func (s *Server) myStatistics(c *gin.Context) {
	req, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)

	summary, err := s.statsService.ForUser(sessionData.UserID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary User statistics
// @Description Statistics for any user (admin only)
// @Tags statistics
// @Accept json
// @Produce json
// @Param user_id path string true "Telegram ID or user ID"
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {object} statistics.Summary
// @Failure 404 {object} map[string]interface{}
// @Router /statistics/user/{user_id} [post]
func (s *Server) userStatistics(c *gin.Context) {
	req, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	user, err := s.findUserByRef(c.Param("user_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	summary, err := s.statsService.ForUser(user.ID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary All users' statistics
// @Description Per-user statistics over a range (admin only)
// @Tags statistics
// @Accept json
// @Produce json
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {array} statistics.UserSummary
// @Router /statistics/all [post]
func (s *Server) allStatistics(c *gin.Context) {
	req, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	summaries, err := s.statsService.ForAllUsers(req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// @Summary My chart data
// @Tags statistics
// @Accept json
// @Produce json
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {object} statistics.Chart
// @Router /statistics/chart/me [post]
func (s *Server) myChart(c *gin.Context) {
	req, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	sessionData, _ := GetSessionData(c)

	chart, err := s.statsService.ChartForUser(sessionData.UserID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build chart")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, chart)
}

// @Summary User chart data
// @Description Chart data for any user (admin only)
// @Tags statistics
// @Accept json
// @Produce json
// @Param user_id path string true "Telegram ID or user ID"
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {object} statistics.Chart
// @Failure 404 {object} map[string]interface{}
// @Router /statistics/chart/user/{user_id} [post]
func (s *Server) userChart(c *gin.Context) {
	req, ok := s.bindDateRange(c)
	if !ok {
		return
	}

	user, err := s.findUserByRef(c.Param("user_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	chart, err := s.statsService.ChartForUser(user.ID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build chart")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, chart)
}
