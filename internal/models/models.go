package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// User status values
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// Work session status values
const (
	SessionOnline  = "online"
	SessionOffline = "offline"
)

// Date and clock formats used across the API. Dates and times of day are
// stored as strings so that range queries stay lexicographic, the same way
// the wire format represents them.
const (
	DateFormat  = "2006-01-02"
	ClockFormat = "15:04"
)

// BaseModel provides common fields and an auto-generated ULID for
// account-level models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// RecordModel provides common fields and an auto-generated UUID for
// attendance records. Record IDs appear in URLs, so they keep the UUID
// format clients already expect.
type RecordModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a UUID for the ID field if it's empty
func (r *RecordModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Settings is the global configuration singleton for a deployment
// (only one row should exist)
type Settings struct {
	BaseModel
	// Auto-generated on first boot (64 hex chars), used to sign browser
	// login tokens
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"`

	// Work day window, HH:MM
	WorkStart  string `json:"work_start" gorm:"not null;default:'09:00'"`
	WorkEnd    string `json:"work_end" gorm:"not null;default:'18:00'"`
	LunchStart string `json:"lunch_start" gorm:"not null;default:'13:00'"`
	LunchEnd   string `json:"lunch_end" gorm:"not null;default:'14:00'"`

	// Office geofence
	GeofenceLat    float64 `json:"-" gorm:"not null;default:0"`
	GeofenceLng    float64 `json:"-" gorm:"not null;default:0"`
	GeofenceRadius float64 `json:"-" gorm:"not null;default:100"`

	// Cron expression for the daily report reminder, empty = no reminders
	ReminderSchedule string     `json:"reminder_schedule"`
	NextReminderAt   *time.Time `json:"next_reminder_at"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Geofence is the wire representation of the office geofence
type Geofence struct {
	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// User represents an employee account. Telegram-originated accounts carry a
// TelegramID; browser accounts carry a username and password hash. An
// account may have both once linked.
type User struct {
	BaseModel
	TelegramID   *int64 `json:"telegram_id,omitempty" gorm:"uniqueIndex"`
	Username     string `json:"username,omitempty" gorm:"uniqueIndex:idx_users_username,where:username <> ''"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Status       string `json:"status" gorm:"not null;default:'pending'"`
	IsAdmin      bool   `json:"is_admin" gorm:"not null;default:false"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// WorkSession represents one user's attendance for one day
type WorkSession struct {
	RecordModel
	UserID             string  `json:"user_id" gorm:"not null;index:idx_sessions_user_date"`
	Date               string  `json:"date" gorm:"not null;index:idx_sessions_user_date"`
	StartTime          string  `json:"start_time"`
	EndTime            *string `json:"end_time"`
	Status             string  `json:"status" gorm:"not null;default:'online'"`
	TotalOnlineMinutes int     `json:"total_online_minutes" gorm:"not null;default:0"`
	TotalOfficeMinutes int     `json:"total_office_minutes" gorm:"not null;default:0"`
	LateArrivalMinutes int     `json:"late_arrival_minutes" gorm:"not null;default:0"`
	EarlyLeaveMinutes  int     `json:"early_leave_minutes" gorm:"not null;default:0"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// LocationPing is a single geolocation sample recorded during a session
type LocationPing struct {
	RecordModel
	UserID       string    `json:"user_id" gorm:"not null"`
	SessionID    string    `json:"session_id" gorm:"not null;index"`
	Latitude     float64   `json:"latitude" gorm:"not null"`
	Longitude    float64   `json:"longitude" gorm:"not null"`
	InsideOffice bool      `json:"is_inside_office" gorm:"not null"`
	RecordedAt   time.Time `json:"timestamp" gorm:"not null"`

	Session *WorkSession `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// Report is a user's daily work report; one row per user per day
type Report struct {
	RecordModel
	UserID      string    `json:"user_id" gorm:"not null;index:idx_reports_user_date,unique"`
	Date        string    `json:"date" gorm:"not null;index:idx_reports_user_date,unique"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// LoadSettings returns the settings singleton
func LoadSettings(db *gorm.DB) (*Settings, error) {
	var settings Settings
	if err := db.First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	all := []interface{}{
		&User{}, &Settings{}, &WorkSession{}, &LocationPing{}, &Report{},
	}

	return db.AutoMigrate(all...)
}
