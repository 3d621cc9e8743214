package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davomat-dev/davomat/internal/attendance"
)

// DateRangeRequest bounds a history or statistics query
type DateRangeRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// LocationRequest carries one geolocation sample
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// @Summary Start work session
// @Tags sessions
// @Produce json
// @Success 200 {object} models.WorkSession
// @Failure 400 {object} map[string]interface{}
// @Router /sessions/start [post]
func (s *Server) startSession(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	session, err := s.attendanceService.StartSession(sessionData.UserID)
	if err != nil {
		if errors.Is(err, attendance.ErrOutsideWorkHours) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Outside work hours"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to start session")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// @Summary End work session
// @Tags sessions
// @Produce json
// @Success 200 {object} models.WorkSession
// @Failure 404 {object} map[string]interface{}
// @Router /sessions/end [post]
func (s *Server) endSession(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	session, err := s.attendanceService.EndSession(sessionData.UserID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoActiveSession) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "No active session"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to end session")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// @Summary Today's session
// @Tags sessions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /sessions/today [get]
func (s *Server) todaySession(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	session, err := s.attendanceService.TodaySession(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load today's session")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// @Summary Session history
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body DateRangeRequest true "Date range"
// @Success 200 {array} models.WorkSession
// @Router /sessions/history [post]
func (s *Server) sessionHistory(c *gin.Context) {
	var req DateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "start_date and end_date are required"})
		return
	}

	sessionData, _ := GetSessionData(c)

	sessions, err := s.attendanceService.SessionsInRange(sessionData.UserID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load session history")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// @Summary Tracking window
// @Description Reports whether clients should currently sample location
// @Tags sessions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /sessions/should-track [get]
func (s *Server) shouldTrack(c *gin.Context) {
	track, err := s.attendanceService.ShouldTrack()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check tracking window")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"should_track": track})
}

// @Summary Record location
// @Tags locations
// @Accept json
// @Produce json
// @Param request body LocationRequest true "Coordinates"
// @Success 200 {object} models.LocationPing
// @Failure 400 {object} map[string]interface{}
// @Router /locations/record [post]
func (s *Server) recordLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "latitude and longitude are required"})
		return
	}

	sessionData, _ := GetSessionData(c)

	session, err := s.attendanceService.TodaySession(sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load today's session")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	if session == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Start a session first"})
		return
	}

	ping, err := s.attendanceService.RecordLocation(sessionData.UserID, session.ID, *req.Latitude, *req.Longitude)
	if err != nil {
		if errors.Is(err, attendance.ErrOutsideWorkHours) {
			// Not an error from the client's point of view: the
			// sample is simply not recorded
			c.JSON(http.StatusOK, gin.H{"recorded": false, "message": "Outside work hours"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to record location")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, ping)
}

// @Summary Session locations
// @Tags locations
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {array} models.LocationPing
// @Router /locations/session/{session_id} [get]
func (s *Server) sessionLocations(c *gin.Context) {
	pings, err := s.attendanceService.SessionLocations(c.Param("session_id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load session locations")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, pings)
}
