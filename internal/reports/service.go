package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
)

// ErrEmptyReport is returned when a submitted report has no content
var ErrEmptyReport = errors.New("report content is empty")

// Service implements daily report submission and retrieval
type Service struct {
	db        *gorm.DB
	log       zerolog.Logger
	sanitizer *bluemonday.Policy

	now func() time.Time
}

// NewService creates a new reports service
func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{
		db: db,
		// Reports are plain text that gets rendered back to other
		// users, so strip all markup on the way in
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
		now:       time.Now,
	}
}

// Submit creates or replaces the user's report for the given date. An empty
// date means today. Resubmitting for the same date overwrites the content.
func (s *Service) Submit(userID, content, date string) (*models.Report, error) {
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, ErrEmptyReport
	}

	if date == "" {
		date = s.now().Format(models.DateFormat)
	}

	var existing models.Report
	err := s.db.Where("user_id = ? AND date = ?", userID, date).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"content":      content,
			"submitted_at": s.now(),
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update report: %w", err)
		}
		existing.Content = content
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		report := &models.Report{
			UserID:      userID,
			Date:        date,
			Content:     content,
			SubmittedAt: s.now(),
		}
		if err := s.db.Create(report).Error; err != nil {
			return nil, fmt.Errorf("failed to create report: %w", err)
		}
		s.log.Info().Str("user_id", userID).Str("date", date).Msg("Report submitted")
		return report, nil
	default:
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
}

// ForDate returns the user's report for a date, or nil if none exists
func (s *Service) ForDate(userID, date string) (*models.Report, error) {
	var report models.Report
	err := s.db.Where("user_id = ? AND date = ?", userID, date).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return &report, nil
}

// ForToday returns the user's report for today, or nil if none exists
func (s *Service) ForToday(userID string) (*models.Report, error) {
	return s.ForDate(userID, s.now().Format(models.DateFormat))
}

// History returns all of the user's reports, newest first
func (s *Service) History(userID string) ([]models.Report, error) {
	var all []models.Report
	err := s.db.Where("user_id = ?", userID).Order("date DESC").Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query report history: %w", err)
	}
	return all, nil
}

// AllForDate returns every user's report for a date (admin view)
func (s *Service) AllForDate(date string) ([]models.Report, error) {
	var all []models.Report
	err := s.db.Where("date = ?", date).Order("submitted_at ASC").Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	return all, nil
}

// MissingForDate returns active users who have not submitted a report for
// the date. Used by the worker to fan out reminders.
func (s *Service) MissingForDate(date string) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Where("status = ?", models.StatusActive).
		Where("id NOT IN (?)", s.db.Model(&models.Report{}).Select("user_id").Where("date = ?", date)).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query users missing reports: %w", err)
	}
	return users, nil
}
