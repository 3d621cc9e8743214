package statistics

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{FirstName: "Test", Status: models.StatusActive}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createSession(t *testing.T, db *gorm.DB, userID, date string, online, office, late, early int) {
	t.Helper()

	session := &models.WorkSession{
		UserID:             userID,
		Date:               date,
		StartTime:          "09:00",
		Status:             models.SessionOffline,
		TotalOnlineMinutes: online,
		TotalOfficeMinutes: office,
		LateArrivalMinutes: late,
		EarlyLeaveMinutes:  early,
	}
	require.NoError(t, db.Create(session).Error)
}

func TestForUser_AggregatesRange(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)

	createSession(t, db, user.ID, "2024-03-11", 480, 400, 15, 0)
	createSession(t, db, user.ID, "2024-03-12", 440, 220, 0, 30)
	// Outside the range
	createSession(t, db, user.ID, "2024-03-20", 480, 480, 0, 0)

	svc := NewService(db, zerolog.Nop())

	summary, err := svc.ForUser(user.ID, "2024-03-11", "2024-03-13")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalDays)
	assert.Equal(t, 920, summary.TotalOnlineMinutes)
	assert.Equal(t, 620, summary.TotalOfficeMinutes)
	assert.Equal(t, 15, summary.TotalLateMinutes)
	assert.Equal(t, 30, summary.TotalEarlyLeaveMinutes)
	assert.InDelta(t, 460, summary.AverageOnlineMinutes, 0.001)
	assert.InDelta(t, 67.39, summary.AttendanceRate, 0.01)
}

func TestForUser_EmptyRange(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)

	svc := NewService(db, zerolog.Nop())

	summary, err := svc.ForUser(user.ID, "2024-03-11", "2024-03-13")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalDays)
	assert.Zero(t, summary.AverageOnlineMinutes)
	assert.Zero(t, summary.AttendanceRate)
}

func TestChartForUser_ZeroFillsGaps(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)

	createSession(t, db, user.ID, "2024-03-11", 480, 400, 15, 0)
	createSession(t, db, user.ID, "2024-03-13", 300, 120, 0, 0)

	svc := NewService(db, zerolog.Nop())

	chart, err := svc.ChartForUser(user.ID, "2024-03-11", "2024-03-13")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-03-11", "2024-03-12", "2024-03-13"}, chart.Labels)
	require.Len(t, chart.Datasets, 3)

	assert.Equal(t, []int{480, 0, 300}, chart.Datasets[0].Data)
	assert.Equal(t, []int{400, 0, 120}, chart.Datasets[1].Data)
	assert.Equal(t, []int{15, 0, 0}, chart.Datasets[2].Data)
}

func TestChartForUser_InvalidDates(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)

	svc := NewService(db, zerolog.Nop())

	_, err := svc.ChartForUser(user.ID, "11-03-2024", "2024-03-13")
	assert.Error(t, err)
}

func TestForAllUsers(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db)
	bob := createUser(t, db)

	createSession(t, db, alice.ID, "2024-03-11", 480, 400, 0, 0)
	createSession(t, db, bob.ID, "2024-03-11", 200, 100, 45, 0)

	svc := NewService(db, zerolog.Nop())

	summaries, err := svc.ForAllUsers("2024-03-11", "2024-03-11")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, alice.ID, summaries[0].User.ID)
	assert.Equal(t, 480, summaries[0].Statistics.TotalOnlineMinutes)
	assert.Equal(t, bob.ID, summaries[1].User.ID)
	assert.Equal(t, 45, summaries[1].Statistics.TotalLateMinutes)
}
