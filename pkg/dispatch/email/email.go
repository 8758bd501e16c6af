// Package email delivers email action nodes over implicit-TLS SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/models"
)

const dialTimeout = 15 * time.Second

// Dispatcher sends a single plain-text message per node through the
// user's SMTP credential. Each dispatch opens and closes its own
// session so a dead connection never leaks into the next attempt.
type Dispatcher struct {
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.With("module", "dispatch.email")}
}

func (d *Dispatcher) Kind() models.NodeKind {
	return models.NodeKindEmail
}

func (d *Dispatcher) CredentialKind() models.CredentialKind {
	return models.CredentialKindSMTP
}

func (d *Dispatcher) Dispatch(ctx context.Context, node *models.Node, credential *models.Credential) (*dispatch.Outcome, error) {
	metadata := node.Metadata.Email
	if metadata == nil {
		return nil, &dispatch.ConfigError{Field: "metadata.email", Reason: "is missing"}
	}

	if credential == nil || credential.SMTP == nil {
		return nil, &dispatch.ConfigError{Field: "credential.smtp", Reason: "is missing"}
	}

	message := mail.NewMsg()

	if err := message.From(credential.SMTP.User); err != nil {
		return nil, &dispatch.ConfigError{Field: "credential.smtp.user", Reason: "is not a valid sender address"}
	}

	if err := message.To(metadata.To); err != nil {
		return nil, &dispatch.ConfigError{Field: "metadata.email.to", Reason: "is not a valid recipient address"}
	}

	message.Subject(metadata.Subject)
	message.SetBodyString(mail.TypeTextPlain, metadata.Message)

	client, err := mail.NewClient(credential.SMTP.Host,
		mail.WithPort(credential.SMTP.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(credential.SMTP.User),
		mail.WithPassword(credential.SMTP.Password),
		mail.WithTimeout(dialTimeout),
	)
	if err != nil {
		return nil, &dispatch.ConfigError{Field: "credential.smtp", Reason: fmt.Sprintf("rejected by client: %v", err)}
	}

	started := time.Now()

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return nil, &dispatch.TransportError{Op: "smtp send", Err: err}
	}

	duration := time.Since(started)

	d.logger.Info("Email delivered",
		"node_id", node.ID,
		"to", metadata.To,
		"duration", duration)

	return &dispatch.Outcome{
		Detail:   fmt.Sprintf("delivered to %s", metadata.To),
		Duration: duration,
	}, nil
}
