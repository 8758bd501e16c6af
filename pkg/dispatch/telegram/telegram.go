// Package telegram delivers Telegram message action nodes through the
// Bot API sendMessage method.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/models"
)

const defaultBaseURL = "https://api.telegram.org"

// Dispatcher posts sendMessage calls with the user's bot token. The
// base URL is overridable so tests can point it at a local server.
type Dispatcher struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

type Option func(*Dispatcher)

// WithBaseURL redirects Bot API calls, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(d *Dispatcher) {
		d.baseURL = baseURL
	}
}

func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		logger:  logger.With("module", "dispatch.telegram"),
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	return dispatcher
}

func (d *Dispatcher) Kind() models.NodeKind {
	return models.NodeKindTelegram
}

func (d *Dispatcher) CredentialKind() models.CredentialKind {
	return models.CredentialKindTelegram
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (d *Dispatcher) Dispatch(ctx context.Context, node *models.Node, credential *models.Credential) (*dispatch.Outcome, error) {
	metadata := node.Metadata.Telegram
	if metadata == nil {
		return nil, &dispatch.ConfigError{Field: "metadata.telegram", Reason: "is missing"}
	}

	if credential == nil || credential.Telegram == nil || credential.Telegram.BotToken == "" {
		return nil, &dispatch.ConfigError{Field: "credential.telegram.bot_token", Reason: "is missing"}
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: metadata.ChatID, Text: metadata.Message})
	if err != nil {
		return nil, &dispatch.ConfigError{Field: "metadata.telegram", Reason: fmt.Sprintf("is not serializable: %v", err)}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", d.baseURL, credential.Telegram.BotToken)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &dispatch.TransportError{Op: "build request", Err: err}
	}

	request.Header.Set("Content-Type", "application/json")

	started := time.Now()

	response, err := d.client.Do(request)
	if err != nil {
		return nil, &dispatch.TransportError{Op: "send message", Err: err}
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, &dispatch.TransportError{Op: "read response", Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &dispatch.TransportError{
			Op:  "send message",
			Err: fmt.Errorf("bot api returned status %d: %s", response.StatusCode, string(body)),
		}
	}

	var apiResponse sendMessageResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, &dispatch.TransportError{Op: "decode response", Err: err}
	}

	if !apiResponse.OK {
		return nil, &dispatch.TransportError{
			Op:  "send message",
			Err: fmt.Errorf("bot api rejected message: %s", apiResponse.Description),
		}
	}

	duration := time.Since(started)

	d.logger.Info("Telegram message delivered",
		"node_id", node.ID,
		"chat_id", metadata.ChatID,
		"duration", duration)

	return &dispatch.Outcome{
		Detail:   fmt.Sprintf("delivered to chat %s", metadata.ChatID),
		Duration: duration,
	}, nil
}
