package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Reminds users who have not submitted their daily report
	TypeReportReminder = "report:reminder"
	// Closes sessions still online after the work day ends
	TypeSessionAutoClose = "session:autoclose"
)

// ReportReminderPayload names the date reminders are sent for
type ReportReminderPayload struct {
	Date string `json:"date"`
}

// NewReportReminderTask creates a task to remind users missing a report for
// the given date
func NewReportReminderTask(date string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportReminderPayload{Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeReportReminder, payload), nil
}

// ParseReportReminderPayload parses the reminder payload from an Asynq task
func ParseReportReminderPayload(task *asynq.Task) (ReportReminderPayload, error) {
	var payload ReportReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// NewSessionAutoCloseTask creates a task to close sessions left online past
// the end of the work day
func NewSessionAutoCloseTask() *asynq.Task {
	return asynq.NewTask(TypeSessionAutoClose, nil)
}
