package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
	"github.com/davomat-dev/davomat/internal/tasks"
)

type fakeNotifier struct {
	sent map[int64]string
	fail bool
}

func (f *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	if f.fail {
		return fmt.Errorf("delivery failed")
	}
	if f.sent == nil {
		f.sent = make(map[int64]string)
	}
	f.sent[chatID] = text
	return nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	return db
}

func TestHandleReportReminder(t *testing.T) {
	db := setupDB(t)

	slacker := int64(100)
	diligent := int64(200)

	users := []models.User{
		{TelegramID: &slacker, FirstName: "Slacker", Status: models.StatusActive},
		{TelegramID: &diligent, FirstName: "Diligent", Status: models.StatusActive},
		{Username: "browser_only", FirstName: "Browser", Status: models.StatusActive},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	date := "2026-03-02"
	require.NoError(t, db.Create(&models.Report{
		UserID:      users[1].ID,
		Date:        date,
		Content:     "done",
		SubmittedAt: time.Now(),
	}).Error)

	notifier := &fakeNotifier{}
	handlers := NewHandlers(db, zerolog.Nop(), notifier)

	task, err := tasks.NewReportReminderTask(date)
	require.NoError(t, err)

	require.NoError(t, handlers.HandleReportReminder(context.Background(), task))

	// Only the Telegram-linked user without a report is reminded
	assert.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[slacker], date)
}

func TestHandleReportReminderDeliveryFailure(t *testing.T) {
	db := setupDB(t)

	chatID := int64(300)
	user := models.User{TelegramID: &chatID, FirstName: "Unreachable", Status: models.StatusActive}
	require.NoError(t, db.Create(&user).Error)

	handlers := NewHandlers(db, zerolog.Nop(), &fakeNotifier{fail: true})

	task, err := tasks.NewReportReminderTask("2026-03-02")
	require.NoError(t, err)

	// A failed delivery is logged, not returned, so Asynq does not retry
	// the whole batch
	assert.NoError(t, handlers.HandleReportReminder(context.Background(), task))
}

func TestInsideWorkWindowBoundaries(t *testing.T) {
	settings := &models.Settings{WorkStart: "09:00", WorkEnd: "18:00"}

	assert.False(t, insideWorkWindow(settings, "08:59"))
	assert.True(t, insideWorkWindow(settings, "09:00"))
	assert.True(t, insideWorkWindow(settings, "12:30"))
	// The window end is inclusive, matching the attendance work-hours
	// check: no auto-close is enqueued at exactly the closing minute
	assert.True(t, insideWorkWindow(settings, "18:00"))
	assert.False(t, insideWorkWindow(settings, "18:01"))
}

func TestCalculateNextReminderTime(t *testing.T) {
	from := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	next := calculateNextReminderTime("0 17 * * 1-5", from)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), *next)

	assert.Nil(t, calculateNextReminderTime("", from))
	assert.Nil(t, calculateNextReminderTime("not a schedule", from))
}
