package workers

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/models"
	"github.com/davomat-dev/davomat/internal/tasks"
)

// StartReminderScheduler runs a periodic check (every minute) for due report
// reminders and stale sessions to close
func StartReminderScheduler(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run immediately on startup, then every minute
	checkAndEnqueueReminder(client, db, logger)
	checkAndEnqueueAutoClose(client, db, logger)

	for range ticker.C {
		checkAndEnqueueReminder(client, db, logger)
		checkAndEnqueueAutoClose(client, db, logger)
	}
}

func checkAndEnqueueReminder(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	settings, err := models.LoadSettings(db)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No settings found - skipping reminder check")
			return
		}
		logger.Error().Err(err).Msg("Failed to load settings for reminder check")
		return
	}

	if settings.ReminderSchedule == "" {
		logger.Debug().Msg("No reminder schedule configured")
		return
	}

	now := time.Now()

	// First run after the schedule is set only computes the next fire time
	if settings.NextReminderAt == nil {
		next := calculateNextReminderTime(settings.ReminderSchedule, now)
		if next == nil {
			logger.Error().
				Str("reminder_schedule", settings.ReminderSchedule).
				Msg("Invalid reminder schedule")
			return
		}
		if err := db.Model(settings).Update("next_reminder_at", next).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to update next_reminder_at")
		}
		return
	}

	if settings.NextReminderAt.After(now) {
		logger.Debug().
			Time("next_reminder_at", *settings.NextReminderAt).
			Msg("Reminder not due yet")
		return
	}

	date := now.Format(models.DateFormat)
	task, err := tasks.NewReportReminderTask(date)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create reminder task")
		return
	}

	if _, err := client.Enqueue(task, asynq.Timeout(5*time.Minute)); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue reminder task")
		return
	}

	// Advance NextReminderAt immediately so the scheduler does not enqueue
	// the same reminder every minute
	next := calculateNextReminderTime(settings.ReminderSchedule, now)
	if next != nil {
		if err := db.Model(settings).Update("next_reminder_at", next).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to update next_reminder_at")
		}
	}

	logger.Info().
		Str("date", date).
		Msg("Report reminder task enqueued")
}

func checkAndEnqueueAutoClose(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	settings, err := models.LoadSettings(db)
	if err != nil {
		return
	}

	// Sessions only go stale once the work day is over
	if insideWorkWindow(settings, time.Now().Format(models.ClockFormat)) {
		return
	}

	var online int64
	if err := db.Model(&models.WorkSession{}).
		Where("status = ?", models.SessionOnline).
		Count(&online).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to count online sessions")
		return
	}
	if online == 0 {
		return
	}

	if _, err := client.Enqueue(tasks.NewSessionAutoCloseTask(), asynq.Timeout(5*time.Minute)); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue auto-close task")
		return
	}

	logger.Info().Int64("online_sessions", online).Msg("Session auto-close task enqueued")
}

// insideWorkWindow mirrors the attendance service's work-hours check: the
// window is inclusive on both ends, so the scheduler never enqueues an
// auto-close that the close handler would treat as still in hours
func insideWorkWindow(settings *models.Settings, clock string) bool {
	return settings.WorkStart <= clock && clock <= settings.WorkEnd
}

// calculateNextReminderTime calculates the next fire time from a cron
// schedule (standard 5-field format)
func calculateNextReminderTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
