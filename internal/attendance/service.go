package attendance

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
)

var (
	// ErrOutsideWorkHours is returned when an operation is attempted
	// outside the configured work window
	ErrOutsideWorkHours = errors.New("outside work hours")

	// ErrNoActiveSession is returned when no session exists for today
	ErrNoActiveSession = errors.New("no active session")
)

// Service implements work session and location tracking
type Service struct {
	db  *gorm.DB
	log zerolog.Logger

	// now is swapped out in tests
	now func() time.Time
}

// NewService creates a new attendance service
func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
		now: time.Now,
	}
}

// IsWorkHours reports whether the current time falls inside the work window.
// Clock strings are HH:MM, so plain string comparison is correct.
func (s *Service) IsWorkHours(settings *models.Settings) bool {
	now := s.now().Format(models.ClockFormat)
	return settings.WorkStart <= now && now <= settings.WorkEnd
}

// lateArrivalMinutes returns how many minutes after the work start the
// session began, or 0 when on time
func lateArrivalMinutes(settings *models.Settings, startTime string) int {
	return clockDiffMinutes(settings.WorkStart, startTime)
}

// earlyLeaveMinutes returns how many minutes before the work end the
// session ended, or 0 when the user stayed until the end
func earlyLeaveMinutes(settings *models.Settings, endTime string) int {
	return clockDiffMinutes(endTime, settings.WorkEnd)
}

// clockDiffMinutes returns b-a in minutes when b is after a, else 0
func clockDiffMinutes(a, b string) int {
	ta, errA := time.Parse(models.ClockFormat, a)
	tb, errB := time.Parse(models.ClockFormat, b)
	if errA != nil || errB != nil {
		return 0
	}
	if diff := tb.Sub(ta); diff > 0 {
		return int(diff.Minutes())
	}
	return 0
}

// HaversineDistance returns the great-circle distance in meters between two
// coordinates
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// insideGeofence reports whether the coordinates fall inside the office
// geofence
func insideGeofence(settings *models.Settings, lat, lng float64) bool {
	distance := HaversineDistance(lat, lng, settings.GeofenceLat, settings.GeofenceLng)
	return distance <= settings.GeofenceRadius
}

// TodaySession returns the user's session for today, or nil if none exists
func (s *Service) TodaySession(userID string) (*models.WorkSession, error) {
	today := s.now().Format(models.DateFormat)

	var session models.WorkSession
	err := s.db.Where("user_id = ? AND date = ?", userID, today).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query today's session: %w", err)
	}

	return &session, nil
}

// StartSession opens (or re-opens) the user's session for today. Starting
// outside the work window returns ErrOutsideWorkHours.
func (s *Service) StartSession(userID string) (*models.WorkSession, error) {
	settings, err := models.LoadSettings(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if !s.IsWorkHours(settings) {
		return nil, ErrOutsideWorkHours
	}

	existing, err := s.TodaySession(userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status != models.SessionOnline {
			if err := s.db.Model(existing).Update("status", models.SessionOnline).Error; err != nil {
				return nil, fmt.Errorf("failed to reopen session: %w", err)
			}
			existing.Status = models.SessionOnline
		}
		return existing, nil
	}

	currentTime := s.now().Format(models.ClockFormat)
	session := &models.WorkSession{
		UserID:             userID,
		Date:               s.now().Format(models.DateFormat),
		StartTime:          currentTime,
		Status:             models.SessionOnline,
		LateArrivalMinutes: lateArrivalMinutes(settings, currentTime),
	}

	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("session_id", session.ID).
		Int("late_minutes", session.LateArrivalMinutes).
		Msg("Work session started")

	return session, nil
}

// EndSession closes the user's session for today. Returns ErrNoActiveSession
// when no session exists.
func (s *Service) EndSession(userID string) (*models.WorkSession, error) {
	session, err := s.TodaySession(userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}

	settings, err := models.LoadSettings(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	currentTime := s.now().Format(models.ClockFormat)
	updates := map[string]interface{}{
		"status":              models.SessionOffline,
		"end_time":            currentTime,
		"early_leave_minutes": earlyLeaveMinutes(settings, currentTime),
	}

	if err := s.db.Model(session).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	session.Status = models.SessionOffline
	session.EndTime = &currentTime
	session.EarlyLeaveMinutes = updates["early_leave_minutes"].(int)

	s.log.Info().
		Str("user_id", userID).
		Str("session_id", session.ID).
		Msg("Work session ended")

	return session, nil
}

// SessionsInRange returns the user's sessions with start <= date <= end
func (s *Service) SessionsInRange(userID, startDate, endDate string) ([]models.WorkSession, error) {
	var sessions []models.WorkSession
	err := s.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, startDate, endDate).
		Order("date ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return sessions, nil
}

// RecordLocation stores a geolocation sample against a session and refreshes
// the session's online/office minute tallies. Each sample counts as one
// minute of online time; samples inside the geofence also count as office
// time. Outside the work window nothing is recorded.
func (s *Service) RecordLocation(userID, sessionID string, lat, lng float64) (*models.LocationPing, error) {
	settings, err := models.LoadSettings(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if !s.IsWorkHours(settings) {
		return nil, ErrOutsideWorkHours
	}

	ping := &models.LocationPing{
		UserID:       userID,
		SessionID:    sessionID,
		Latitude:     lat,
		Longitude:    lng,
		InsideOffice: insideGeofence(settings, lat, lng),
		RecordedAt:   s.now(),
	}

	if err := s.db.Create(ping).Error; err != nil {
		return nil, fmt.Errorf("failed to record location: %w", err)
	}

	var online, office int64
	if err := s.db.Model(&models.LocationPing{}).Where("session_id = ?", sessionID).Count(&online).Error; err != nil {
		return nil, fmt.Errorf("failed to count pings: %w", err)
	}
	if err := s.db.Model(&models.LocationPing{}).Where("session_id = ? AND inside_office = ?", sessionID, true).Count(&office).Error; err != nil {
		return nil, fmt.Errorf("failed to count office pings: %w", err)
	}

	err = s.db.Model(&models.WorkSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"total_online_minutes": online,
			"total_office_minutes": office,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update session tallies: %w", err)
	}

	return ping, nil
}

// SessionLocations returns all location samples recorded for a session
func (s *Service) SessionLocations(sessionID string) ([]models.LocationPing, error) {
	var pings []models.LocationPing
	err := s.db.Where("session_id = ?", sessionID).Order("recorded_at ASC").Find(&pings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	return pings, nil
}

// ShouldTrack reports whether clients should currently be sampling location
func (s *Service) ShouldTrack() (bool, error) {
	settings, err := models.LoadSettings(s.db)
	if err != nil {
		return false, fmt.Errorf("failed to load settings: %w", err)
	}
	return s.IsWorkHours(settings), nil
}

// CloseStaleSessions ends every session still online after the work window.
// Used by the worker's auto-close task; returns the number closed.
func (s *Service) CloseStaleSessions() (int, error) {
	settings, err := models.LoadSettings(s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}

	if s.IsWorkHours(settings) {
		return 0, nil
	}

	today := s.now().Format(models.DateFormat)

	var sessions []models.WorkSession
	err = s.db.Where("date = ? AND status = ?", today, models.SessionOnline).Find(&sessions).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query open sessions: %w", err)
	}

	for i := range sessions {
		updates := map[string]interface{}{
			"status":   models.SessionOffline,
			"end_time": settings.WorkEnd,
		}
		if err := s.db.Model(&sessions[i]).Updates(updates).Error; err != nil {
			return 0, fmt.Errorf("failed to close session %s: %w", sessions[i].ID, err)
		}
		s.log.Info().
			Str("session_id", sessions[i].ID).
			Str("user_id", sessions[i].UserID).
			Msg("Auto-closed stale session")
	}

	return len(sessions), nil
}
