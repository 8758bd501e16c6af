package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

type countingRepository struct {
	credentials map[string]*models.Credential
	calls       int
}

func (r *countingRepository) Create(_ context.Context, _ *models.Credential) error { return nil }

func (r *countingRepository) GetByUserAndKind(_ context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	r.calls++

	credential, ok := r.credentials[userID+":"+string(kind)]
	if !ok {
		return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind),
			persistence.ErrCredentialNotFound)
	}

	return credential, nil
}

func (r *countingRepository) ListByUser(_ context.Context, _ string) ([]*models.Credential, error) {
	return nil, nil
}

func (r *countingRepository) Delete(_ context.Context, _, _ string) error { return nil }

func smtpCredential(userID string) *models.Credential {
	return &models.Credential{
		ID:     "cred-smtp",
		UserID: userID,
		Name:   "personal smtp",
		Kind:   models.CredentialKindSMTP,
		SMTP: &models.SMTPCredential{
			Host:     "smtp.example.com",
			Port:     465,
			User:     "mailer",
			Password: "secret",
		},
	}
}

func telegramCredential(userID string) *models.Credential {
	return &models.Credential{
		ID:       "cred-telegram",
		UserID:   userID,
		Name:     "alerts bot",
		Kind:     models.CredentialKindTelegram,
		Telegram: &models.TelegramCredential{BotToken: "123:abc"},
	}
}

func TestStoreResolverCachesHits(t *testing.T) {
	repository := &countingRepository{credentials: map[string]*models.Credential{
		"user-1:smtp": smtpCredential("user-1"),
	}}
	resolver := NewStoreResolver(repository)

	first, err := resolver.Resolve(context.Background(), "user-1", models.CredentialKindSMTP)
	require.NoError(t, err)

	second, err := resolver.Resolve(context.Background(), "user-1", models.CredentialKindSMTP)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repository.calls)
}

func TestStoreResolverDoesNotCacheMisses(t *testing.T) {
	repository := &countingRepository{credentials: map[string]*models.Credential{}}
	resolver := NewStoreResolver(repository)

	_, err := resolver.Resolve(context.Background(), "user-1", models.CredentialKindSMTP)
	require.Error(t, err)
	assert.True(t, persistence.IsCredentialNotFound(err))

	_, err = resolver.Resolve(context.Background(), "user-1", models.CredentialKindSMTP)
	require.Error(t, err)
	assert.Equal(t, 2, repository.calls)
}

func TestStoreResolverInvalidate(t *testing.T) {
	repository := &countingRepository{credentials: map[string]*models.Credential{
		"user-1:telegram": telegramCredential("user-1"),
	}}
	resolver := NewStoreResolver(repository)

	_, err := resolver.Resolve(context.Background(), "user-1", models.CredentialKindTelegram)
	require.NoError(t, err)

	resolver.Invalidate("user-1", models.CredentialKindTelegram)

	_, err = resolver.Resolve(context.Background(), "user-1", models.CredentialKindTelegram)
	require.NoError(t, err)
	assert.Equal(t, 2, repository.calls)
}

func TestSnapshotResolvesEveryKind(t *testing.T) {
	resolver := NewMemoryResolver()
	resolver.Add(smtpCredential("user-1"))
	resolver.Add(telegramCredential("user-1"))

	snapshot, err := Snapshot(context.Background(), resolver, "user-1",
		[]models.CredentialKind{models.CredentialKindSMTP, models.CredentialKindTelegram})
	require.NoError(t, err)

	require.Len(t, snapshot, 2)
	assert.Equal(t, "smtp.example.com", snapshot[models.CredentialKindSMTP].SMTP.Host)
	assert.Equal(t, "123:abc", snapshot[models.CredentialKindTelegram].Telegram.BotToken)
}

func TestSnapshotFailsFastOnMissingKind(t *testing.T) {
	resolver := NewMemoryResolver()
	resolver.Add(smtpCredential("user-1"))

	_, err := Snapshot(context.Background(), resolver, "user-1",
		[]models.CredentialKind{models.CredentialKindSMTP, models.CredentialKindTelegram})
	require.Error(t, err)

	assert.True(t, IsMissingCredential(err))

	var missingErr *MissingCredentialError

	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, models.CredentialKindTelegram, missingErr.Kind)
}

func TestSnapshotEmptyKinds(t *testing.T) {
	snapshot, err := Snapshot(context.Background(), NewMemoryResolver(), "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}
