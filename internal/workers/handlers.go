// Package workers implements the Asynq task handlers and the scheduler that
// enqueues them.
package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davomat-dev/davomat/internal/attendance"
	"github.com/davomat-dev/davomat/internal/reports"
	"github.com/davomat-dev/davomat/internal/tasks"
)

// Notifier delivers messages to users
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Handlers holds dependencies shared by all task handlers
type Handlers struct {
	db       *gorm.DB
	logger   zerolog.Logger
	notifier Notifier

	attendanceService *attendance.Service
	reportsService    *reports.Service
}

// NewHandlers creates the task handler set
func NewHandlers(db *gorm.DB, logger zerolog.Logger, notifier Notifier) *Handlers {
	return &Handlers{
		db:                db,
		logger:            logger,
		notifier:          notifier,
		attendanceService: attendance.NewService(db, logger),
		reportsService:    reports.NewService(db, logger),
	}
}

// HandleReportReminder messages every active user who has not submitted a
// report for the payload's date. Only Telegram-linked accounts can be
// reached; delivery failures are logged and skipped so one unreachable user
// does not block the rest.
func (h *Handlers) HandleReportReminder(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseReportReminderPayload(t)
	if err != nil {
		return err
	}

	users, err := h.reportsService.MissingForDate(payload.Date)
	if err != nil {
		return fmt.Errorf("failed to find users missing reports: %w", err)
	}

	sent := 0
	for _, user := range users {
		if user.TelegramID == nil {
			continue
		}

		text := fmt.Sprintf("You have not submitted your daily report for %s yet. Please submit it before the end of the day.", payload.Date)
		if err := h.notifier.SendMessage(ctx, *user.TelegramID, text); err != nil {
			h.logger.Warn().
				Err(err).
				Str("user_id", user.ID).
				Int64("telegram_id", *user.TelegramID).
				Msg("Failed to deliver report reminder")
			continue
		}
		sent++
	}

	h.logger.Info().
		Str("date", payload.Date).
		Int("missing", len(users)).
		Int("sent", sent).
		Msg("Report reminders processed")

	return nil
}

// HandleSessionAutoClose ends sessions still marked online after the work
// day. The end time is clamped to the configured work end.
func (h *Handlers) HandleSessionAutoClose(ctx context.Context, t *asynq.Task) error {
	closed, err := h.attendanceService.CloseStaleSessions()
	if err != nil {
		return fmt.Errorf("failed to close stale sessions: %w", err)
	}

	if closed > 0 {
		h.logger.Info().Int("closed", closed).Msg("Auto-closed stale sessions")
	}

	return nil
}
