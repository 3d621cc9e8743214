package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davomat-dev/davomat/internal/models"
	"github.com/davomat-dev/davomat/internal/reports"
)

// ReportRequest submits a daily report. Date defaults to today when omitted.
type ReportRequest struct {
	Content string `json:"content" binding:"required"`
	Date    string `json:"date"`
}

func validDate(date string) bool {
	_, err := time.Parse(models.DateFormat, date)
	return err == nil
}

// @Summary Submit daily report
// @Tags reports
// @Accept json
// @Produce json
// @Param request body ReportRequest true "Report"
// @Success 200 {object} models.Report
// @Failure 400 {object} map[string]interface{}
// @Router /reports/submit [post]
func (s *Server) submitReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Report content is required"})
		return
	}

	if req.Date != "" && !validDate(req.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid date"})
		return
	}

	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.Submit(sessionData.UserID, req.Content, req.Date)
	if err != nil {
		if errors.Is(err, reports.ErrEmptyReport) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Report content is required"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to submit report")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// @Summary Today's report
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /reports/today [get]
func (s *Server) todayReport(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.ForToday(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load today's report")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "submitted": report != nil})
}

// @Summary Report by date
// @Tags reports
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /reports/date/{date} [get]
func (s *Server) reportByDate(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid date"})
		return
	}

	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.ForDate(sessionData.UserID, date)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load report")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// @Summary Report history
// @Tags reports
// @Produce json
// @Success 200 {array} models.Report
// @Router /reports/history [get]
func (s *Server) reportHistory(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	history, err := s.reportsService.History(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load report history")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// @Summary Report status
// @Description Reports whether today's report has been submitted
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /reports/status [get]
func (s *Server) reportStatus(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	report, err := s.reportsService.ForToday(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load today's report")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submitted": report != nil})
}

// @Summary All reports for a date
// @Description List every user's report for a date (admin only)
// @Tags reports
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {array} models.Report
// @Failure 400 {object} map[string]interface{}
// @Router /reports/all/{date} [get]
func (s *Server) allReportsByDate(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid date"})
		return
	}

	all, err := s.reportsService.AllForDate(date)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load reports")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, all)
}
