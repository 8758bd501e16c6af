package email

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func emailNode() *models.Node {
	return &models.Node{
		ID:   "node-email",
		Kind: models.NodeKindEmail,
		Type: models.NodeTypeTarget,
		Metadata: models.NodeMetadata{
			Email: &models.EmailMetadata{
				To:      "ops@example.com",
				Subject: "Deploy finished",
				Message: "All green.",
			},
		},
	}
}

func smtpCredential() *models.Credential {
	return &models.Credential{
		ID:     "cred-1",
		UserID: "user-1",
		Kind:   models.CredentialKindSMTP,
		SMTP: &models.SMTPCredential{
			Host:     "smtp.example.com",
			Port:     465,
			User:     "mailer@example.com",
			Password: "secret",
		},
	}
}

func TestDispatcherKinds(t *testing.T) {
	dispatcher := NewDispatcher(testLogger())

	assert.Equal(t, models.NodeKindEmail, dispatcher.Kind())
	assert.Equal(t, models.CredentialKindSMTP, dispatcher.CredentialKind())
}

func TestDispatchMissingMetadata(t *testing.T) {
	dispatcher := NewDispatcher(testLogger())

	node := emailNode()
	node.Metadata.Email = nil

	_, err := dispatcher.Dispatch(context.Background(), node, smtpCredential())
	require.Error(t, err)
	assert.True(t, dispatch.IsConfigError(err))
}

func TestDispatchMissingCredential(t *testing.T) {
	dispatcher := NewDispatcher(testLogger())

	_, err := dispatcher.Dispatch(context.Background(), emailNode(), &models.Credential{})
	require.Error(t, err)
	assert.True(t, dispatch.IsConfigError(err))
}

func TestDispatchInvalidSenderAddress(t *testing.T) {
	dispatcher := NewDispatcher(testLogger())

	credential := smtpCredential()
	credential.SMTP.User = "not an address"

	_, err := dispatcher.Dispatch(context.Background(), emailNode(), credential)
	require.Error(t, err)
	assert.True(t, dispatch.IsConfigError(err))
}

func TestDispatchInvalidRecipientAddress(t *testing.T) {
	dispatcher := NewDispatcher(testLogger())

	node := emailNode()
	node.Metadata.Email.To = "not an address"

	_, err := dispatcher.Dispatch(context.Background(), node, smtpCredential())
	require.Error(t, err)
	assert.True(t, dispatch.IsConfigError(err))
}

func TestDispatchUnreachableHostIsTransportError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network dial in short mode")
	}

	dispatcher := NewDispatcher(testLogger())

	credential := smtpCredential()
	credential.SMTP.Host = "127.0.0.1"
	credential.SMTP.Port = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := dispatcher.Dispatch(ctx, emailNode(), credential)
	require.Error(t, err)
	assert.True(t, dispatch.IsTransportError(err))
}
