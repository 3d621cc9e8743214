// Package notify delivers messages to users through the Telegram Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when no bot token is set
var ErrNotConfigured = errors.New("telegram bot token not configured")

const apiBaseURL = "https://api.telegram.org"

// Telegram sends messages through the Bot API
type Telegram struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTelegram creates a notifier using the given bot token. An empty token
// produces a notifier whose sends fail with ErrNotConfigured.
func NewTelegram(botToken string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		botToken: botToken,
		baseURL:  apiBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the Bot API base URL, used by tests
func (t *Telegram) SetBaseURL(baseURL string) {
	t.baseURL = baseURL
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage delivers a text message to the given Telegram chat
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	if t.botToken == "" {
		return ErrNotConfigured
	}

	jsonData, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !apiResp.OK {
		return fmt.Errorf("telegram api error (status %d): %s", resp.StatusCode, apiResp.Description)
	}

	t.logger.Debug().Int64("chat_id", chatID).Msg("Telegram message sent")

	return nil
}
