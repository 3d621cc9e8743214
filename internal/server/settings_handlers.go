package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/davomat-dev/davomat/internal/models"
)

// SettingsResponse is the wire form of the settings singleton
type SettingsResponse struct {
	WorkStart        string          `json:"work_start"`
	WorkEnd          string          `json:"work_end"`
	LunchStart       string          `json:"lunch_start"`
	LunchEnd         string          `json:"lunch_end"`
	Geofence         models.Geofence `json:"geofence"`
	ReminderSchedule string          `json:"reminder_schedule"`
}

// SettingsUpdateRequest carries a partial settings update; nil fields are
// left unchanged
type SettingsUpdateRequest struct {
	WorkStart        *string          `json:"work_start"`
	WorkEnd          *string          `json:"work_end"`
	LunchStart       *string          `json:"lunch_start"`
	LunchEnd         *string          `json:"lunch_end"`
	Geofence         *models.Geofence `json:"geofence"`
	ReminderSchedule *string          `json:"reminder_schedule"`
}

// @Summary Get settings
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /settings [get]
func (s *Server) getSettings(c *gin.Context) {
	settings, err := models.LoadSettings(s.db)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		WorkStart:  settings.WorkStart,
		WorkEnd:    settings.WorkEnd,
		LunchStart: settings.LunchStart,
		LunchEnd:   settings.LunchEnd,
		Geofence: models.Geofence{
			CenterLat:    settings.GeofenceLat,
			CenterLng:    settings.GeofenceLng,
			RadiusMeters: settings.GeofenceRadius,
		},
		ReminderSchedule: settings.ReminderSchedule,
	})
}

// @Summary Update settings
// @Description Partially update the settings singleton (admin only)
// @Tags settings
// @Accept json
// @Produce json
// @Param request body SettingsUpdateRequest true "Fields to change"
// @Success 200 {object} SettingsResponse
// @Failure 400 {object} map[string]interface{}
// @Router /settings [put]
func (s *Server) updateSettings(c *gin.Context) {
	var req SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	for _, clock := range []*string{req.WorkStart, req.WorkEnd, req.LunchStart, req.LunchEnd} {
		if clock == nil {
			continue
		}
		if err := s.validator.Var(*clock, "workclock"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Clock values must be HH:MM"})
			return
		}
	}

	if req.ReminderSchedule != nil && *req.ReminderSchedule != "" {
		if _, err := cron.ParseStandard(*req.ReminderSchedule); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid reminder schedule"})
			return
		}
	}

	if req.Geofence != nil && req.Geofence.RadiusMeters <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Geofence radius must be positive"})
		return
	}

	settings, err := models.LoadSettings(s.db)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	updates := map[string]interface{}{}
	if req.WorkStart != nil {
		updates["work_start"] = *req.WorkStart
	}
	if req.WorkEnd != nil {
		updates["work_end"] = *req.WorkEnd
	}
	if req.LunchStart != nil {
		updates["lunch_start"] = *req.LunchStart
	}
	if req.LunchEnd != nil {
		updates["lunch_end"] = *req.LunchEnd
	}
	if req.Geofence != nil {
		updates["geofence_lat"] = req.Geofence.CenterLat
		updates["geofence_lng"] = req.Geofence.CenterLng
		updates["geofence_radius"] = req.Geofence.RadiusMeters
	}
	if req.ReminderSchedule != nil {
		updates["reminder_schedule"] = *req.ReminderSchedule
		// Force the scheduler to recompute from the new expression
		updates["next_reminder_at"] = nil
	}

	if len(updates) > 0 {
		if err := s.db.Model(settings).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update settings")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("updated_by", sessionData.UserID).Msg("Settings updated")

	s.getSettings(c)
}
