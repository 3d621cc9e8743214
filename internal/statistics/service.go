package statistics

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
)

// Summary aggregates a user's sessions over a date range
type Summary struct {
	UserID                 string  `json:"user_id"`
	StartDate              string  `json:"start_date"`
	EndDate                string  `json:"end_date"`
	TotalDays              int     `json:"total_days"`
	TotalOnlineMinutes     int     `json:"total_online_minutes"`
	TotalOfficeMinutes     int     `json:"total_office_minutes"`
	TotalLateMinutes       int     `json:"total_late_minutes"`
	TotalEarlyLeaveMinutes int     `json:"total_early_leave_minutes"`
	AverageOnlineMinutes   float64 `json:"average_online_minutes"`
	AttendanceRate         float64 `json:"attendance_rate"`
}

// Dataset is one chart series
type Dataset struct {
	Label       string `json:"label"`
	Data        []int  `json:"data"`
	BorderColor string `json:"borderColor"`
}

// Chart is a time-series payload ready for a line chart: one label per day
// in the range, one dataset per tracked metric, gaps zero-filled
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// UserSummary pairs a user with their range summary (admin view)
type UserSummary struct {
	User       models.User `json:"user"`
	Statistics Summary     `json:"statistics"`
}

// Service computes attendance statistics
type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewService creates a new statistics service
func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) sessionsInRange(userID, startDate, endDate string) ([]models.WorkSession, error) {
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

// ForUser aggregates one user's sessions over the range
func (s *Service) ForUser(userID, startDate, endDate string) (*Summary, error) {
	sessions, err := s.sessionsInRange(userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		TotalDays: len(sessions),
	}

	for _, session := range sessions {
		summary.TotalOnlineMinutes += session.TotalOnlineMinutes
		summary.TotalOfficeMinutes += session.TotalOfficeMinutes
		summary.TotalLateMinutes += session.LateArrivalMinutes
		summary.TotalEarlyLeaveMinutes += session.EarlyLeaveMinutes
	}

	if len(sessions) > 0 {
		summary.AverageOnlineMinutes = float64(summary.TotalOnlineMinutes) / float64(len(sessions))
	}
	if summary.TotalOnlineMinutes > 0 {
		summary.AttendanceRate = float64(summary.TotalOfficeMinutes) / float64(summary.TotalOnlineMinutes) * 100
	}

	return summary, nil
}

// ForAllUsers aggregates every user's sessions over the range
func (s *Service) ForAllUsers(startDate, endDate string) ([]UserSummary, error) {
	var users []models.User
	if err := s.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		summary, err := s.ForUser(user.ID, startDate, endDate)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, UserSummary{User: user, Statistics: *summary})
	}

	return summaries, nil
}

// ChartForUser builds the per-day chart payload for the range
func (s *Service) ChartForUser(userID, startDate, endDate string) (*Chart, error) {
	sessions, err := s.sessionsInRange(userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(models.DateFormat, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(models.DateFormat, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	byDate := make(map[string]models.WorkSession, len(sessions))
	for _, session := range sessions {
		byDate[session.Date] = session
	}

	chart := &Chart{}
	var online, office, late []int

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateFormat)
		chart.Labels = append(chart.Labels, date)

		session := byDate[date] // zero value fills gaps
		online = append(online, session.TotalOnlineMinutes)
		office = append(office, session.TotalOfficeMinutes)
		late = append(late, session.LateArrivalMinutes)
	}

	chart.Datasets = []Dataset{
		{Label: "Online minutes", Data: online, BorderColor: "#4CAF50"},
		{Label: "Office minutes", Data: office, BorderColor: "#2196F3"},
		{Label: "Late minutes", Data: late, BorderColor: "#F44336"},
	}

	return chart, nil
}
