package models

import (
	"errors"
	"time"
)

// CredentialKind identifies the family of connection parameters a
// credential carries.
type CredentialKind string

const (
	CredentialKindSMTP     CredentialKind = "smtp"
	CredentialKindTelegram CredentialKind = "telegram"
)

// Credential is a named, typed bundle of secret connection parameters
// owned by a user. Credentials are replaced by delete+recreate, never
// mutated in place.
type Credential struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id" validate:"required"`
	Name      string              `json:"name"    validate:"required"`
	Kind      CredentialKind      `json:"kind"    validate:"required,oneof=smtp telegram"`
	SMTP      *SMTPCredential     `json:"smtp,omitempty"`
	Telegram  *TelegramCredential `json:"telegram,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// SMTPCredential holds connection parameters for implicit-TLS SMTP
// submission.
type SMTPCredential struct {
	Host     string `json:"host"     validate:"required"`
	Port     int    `json:"port"     validate:"required,min=1,max=65535"`
	User     string `json:"user"     validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TelegramCredential holds a bot token for the Telegram Bot API.
type TelegramCredential struct {
	BotToken string `json:"bot_token" validate:"required"`
}

var (
	ErrCredentialFieldsMissing = errors.New("credential fields missing for kind")
	ErrUnknownCredentialKind   = errors.New("unknown credential kind")
)

// Validate checks creation-time invariants: SMTP requires
// host+port+user+pass, Telegram requires a bot token.
func (c *Credential) Validate() error {
	switch c.Kind {
	case CredentialKindSMTP:
		if c.SMTP == nil || c.SMTP.Host == "" || c.SMTP.Port == 0 || c.SMTP.User == "" || c.SMTP.Password == "" {
			return ErrCredentialFieldsMissing
		}

		return nil
	case CredentialKindTelegram:
		if c.Telegram == nil || c.Telegram.BotToken == "" {
			return ErrCredentialFieldsMissing
		}

		return nil
	default:
		return ErrUnknownCredentialKind
	}
}

// CredentialKindFor maps an action node kind to the credential kind it
// dispatches with.
func CredentialKindFor(kind NodeKind) (CredentialKind, bool) {
	switch kind {
	case NodeKindEmail:
		return CredentialKindSMTP, true
	case NodeKindTelegram:
		return CredentialKindTelegram, true
	default:
		return "", false
	}
}
