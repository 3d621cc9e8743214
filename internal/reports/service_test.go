package reports

import (
	"fmt"
	"testing"
	"time"

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

func createUser(t *testing.T, db *gorm.DB, status string) *models.User {
	t.Helper()

	user := &models.User{FirstName: "Test", Status: status}
	require.NoError(t, db.Create(user).Error)
	return user
}

func serviceAt(db *gorm.DB, clock time.Time) *Service {
	svc := NewService(db, zerolog.Nop())
	svc.now = func() time.Time { return clock }
	return svc
}

func TestSubmit_CreatesReportForToday(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 30, 0, 0, time.UTC))

	report, err := svc.Submit(user.ID, "Finished the quarterly summary", "")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-11", report.Date)
	assert.Equal(t, "Finished the quarterly summary", report.Content)
}

func TestSubmit_OverwritesSameDay(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 30, 0, 0, time.UTC))

	first, err := svc.Submit(user.ID, "draft", "")
	require.NoError(t, err)

	second, err := svc.Submit(user.ID, "final version", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := svc.ForDate(user.ID, "2024-03-11")
	require.NoError(t, err)
	assert.Equal(t, "final version", stored.Content)
}

func TestSubmit_RejectsEmptyContent(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 30, 0, 0, time.UTC))

	_, err := svc.Submit(user.ID, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestSubmit_StripsMarkup(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 30, 0, 0, time.UTC))

	report, err := svc.Submit(user.ID, `<script>alert(1)</script>met with the client`, "")
	require.NoError(t, err)
	assert.Equal(t, "met with the client", report.Content)

	// Markup-only content collapses to empty
	_, err = svc.Submit(user.ID, `<img src=x onerror=alert(1)>`, "")
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestForDate_NoReport(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 30, 0, 0, time.UTC))

	report, err := svc.ForDate(user.ID, "2024-03-11")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestHistory_NewestFirst(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db, models.StatusActive)

	svc := serviceAt(db, time.Date(2024, 3, 13, 17, 0, 0, 0, time.UTC))

	for _, date := range []string{"2024-03-11", "2024-03-13", "2024-03-12"} {
		_, err := svc.Submit(user.ID, "work done on "+date, date)
		require.NoError(t, err)
	}

	history, err := svc.History(user.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-03-13", history[0].Date)
	assert.Equal(t, "2024-03-11", history[2].Date)
}

func TestMissingForDate(t *testing.T) {
	db := setupDB(t)
	submitted := createUser(t, db, models.StatusActive)
	missing := createUser(t, db, models.StatusActive)
	pending := createUser(t, db, models.StatusPending)
	_ = pending

	svc := serviceAt(db, time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC))

	_, err := svc.Submit(submitted.ID, "done", "2024-03-11")
	require.NoError(t, err)

	users, err := svc.MissingForDate("2024-03-11")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, missing.ID, users[0].ID)
}
