package registry

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

type stubDispatcher struct {
	kind models.NodeKind
}

func (d *stubDispatcher) Kind() models.NodeKind { return d.kind }

func (d *stubDispatcher) CredentialKind() models.CredentialKind {
	credentialKind, _ := models.CredentialKindFor(d.kind)

	return credentialKind
}

func (d *stubDispatcher) Dispatch(_ context.Context, _ *models.Node, _ *models.Credential) (*dispatch.Outcome, error) {
	return &dispatch.Outcome{Detail: "ok"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherLookup(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKindEmail})

	dispatcher, err := registry.DispatcherFor(models.NodeKindEmail)
	require.NoError(t, err)
	assert.Equal(t, models.NodeKindEmail, dispatcher.Kind())

	_, err = registry.DispatcherFor(models.NodeKindTelegram)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dispatcher registered")
}

func TestKinds(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKindEmail})
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKindTelegram})

	kinds := registry.Kinds()

	assert.Len(t, kinds, 2)
	assert.Contains(t, kinds, models.NodeKindEmail)
	assert.Contains(t, kinds, models.NodeKindTelegram)
}

func TestHealthCheck(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKindEmail})
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKindTelegram})

	assert.NoError(t, registry.HealthCheck())
}

func TestHealthCheckUnknownKind(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.RegisterDispatcher(&stubDispatcher{kind: models.NodeKind("carrier-pigeon")})

	assert.Error(t, registry.HealthCheck())
}

func TestValidateMetadata(t *testing.T) {
	err := ValidateMetadata(models.NodeKindEmail, map[string]any{
		"to":      "ops@example.com",
		"subject": "Deploy finished",
		"message": "All green.",
	})
	assert.NoError(t, err)
}

func TestValidateMetadataMissingField(t *testing.T) {
	err := ValidateMetadata(models.NodeKindTelegram, map[string]any{"chat_id": "42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestValidateMetadataEmptyForManual(t *testing.T) {
	assert.NoError(t, ValidateMetadata(models.NodeKindManual, nil))
}

func TestValidateMetadataUnknownKind(t *testing.T) {
	err := ValidateMetadata(models.NodeKind("carrier-pigeon"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node kind")
}

func TestMetadataSchemaLookup(t *testing.T) {
	schema, ok := MetadataSchema(models.NodeKindSchedule)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])

	_, ok = MetadataSchema(models.NodeKind("carrier-pigeon"))
	assert.False(t, ok)
}
