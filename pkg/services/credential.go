package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// ErrCredentialNotFound is returned when a credential is not found.
var ErrCredentialNotFound = persistence.ErrCredentialNotFound

// CacheInvalidator drops cached credential lookups after a delete so a
// stale secret does not outlive its record.
type CacheInvalidator interface {
	Invalidate(userID string, kind models.CredentialKind)
}

// Credential provides user-scoped credential management. Credentials
// are validated at creation and replaced via delete+recreate.
type Credential struct {
	persistence persistence.Persistence
	invalidator CacheInvalidator
}

// NewCredential creates a new credential service. invalidator may be nil.
func NewCredential(persistence persistence.Persistence, invalidator CacheInvalidator) *Credential {
	return &Credential{
		persistence: persistence,
		invalidator: invalidator,
	}
}

// CreateCredentialRequest carries a new credential definition.
type CreateCredentialRequest struct {
	UserID   string
	Name     string
	Kind     models.CredentialKind
	SMTP     *models.SMTPCredential
	Telegram *models.TelegramCredential
}

func (c *Credential) Create(ctx context.Context, req CreateCredentialRequest) (*models.Credential, error) {
	credential := &models.Credential{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Name:      req.Name,
		Kind:      req.Kind,
		SMTP:      req.SMTP,
		Telegram:  req.Telegram,
		CreatedAt: time.Now().UTC(),
	}

	if req.UserID == "" || req.Name == "" {
		return nil, NewValidationError("Create", "INVALID_CREDENTIAL",
			"user id and name are required", ErrInvalidRequest)
	}

	if err := credential.Validate(); err != nil {
		return nil, NewValidationError("Create", "INVALID_CREDENTIAL", err.Error(), ErrCredentialInvalid)
	}

	if err := c.persistence.Credentials().Create(ctx, credential); err != nil {
		if persistence.IsCredentialAlreadyExists(err) {
			return nil, &ServiceError{Op: "Create", Code: "KIND_TAKEN", Err: ErrCredentialKindTaken}
		}

		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return credential, nil
}

// List returns the credentials owned by userID with secret fields intact;
// the web layer is responsible for redaction.
func (c *Credential) List(ctx context.Context, userID string) ([]*models.Credential, error) {
	credentials, err := c.persistence.Credentials().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return credentials, nil
}

// Delete removes a credential owned by userID and invalidates any
// cached resolution of it. The kind lookup must succeed before the
// delete so a stale cached secret cannot silently survive.
func (c *Credential) Delete(ctx context.Context, credentialID, userID string) error {
	credentials, err := c.persistence.Credentials().ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve credential kind for delete: %w", err)
	}

	var kind models.CredentialKind

	for _, credential := range credentials {
		if credential.ID == credentialID {
			kind = credential.Kind

			break
		}
	}

	if err := c.persistence.Credentials().Delete(ctx, credentialID, userID); err != nil {
		return err
	}

	if c.invalidator != nil && kind != "" {
		c.invalidator.Invalidate(userID, kind)
	}

	return nil
}
