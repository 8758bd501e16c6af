package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// CredentialRepository handles credential-related database operations. The
// kind-specific secret fields live in a single JSONB column keyed by kind.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sql.DB, logger *slog.Logger) *CredentialRepository {
	return &CredentialRepository{db: db, logger: logger}
}

type credentialData struct {
	SMTP     *models.SMTPCredential     `json:"smtp,omitempty"`
	Telegram *models.TelegramCredential `json:"telegram,omitempty"`
}

func (r *CredentialRepository) Create(ctx context.Context, credential *models.Credential) error {
	data, err := json.Marshal(credentialData{SMTP: credential.SMTP, Telegram: credential.Telegram})
	if err != nil {
		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	query := `
		INSERT INTO credentials (id, user_id, name, kind, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		credential.ID, credential.UserID, credential.Name, string(credential.Kind), data, credential.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind),
				persistence.ErrCredentialAlreadyExists)
		}

		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	return nil
}

func (r *CredentialRepository) GetByUserAndKind(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	query := `
		SELECT id, user_id, name, kind, data, created_at
		FROM credentials
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at ASC
		LIMIT 1
	`

	credential, err := scanCredential(r.db.QueryRowContext(ctx, query, userID, string(kind)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind),
				persistence.ErrCredentialNotFound)
		}

		return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind), err)
	}

	return credential, nil
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query := `
		SELECT id, user_id, name, kind, data, created_at
		FROM credentials
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	credentials := make([]*models.Credential, 0)

	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return credentials, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return persistence.NewCredentialError("Delete", userID, "", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCredentialError("Delete", userID, "", err)
	}

	if affected == 0 {
		return persistence.NewCredentialError("Delete", userID, "", persistence.ErrCredentialNotFound)
	}

	return nil
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		credential models.Credential
		kind       string
		data       []byte
	)

	err := row.Scan(&credential.ID, &credential.UserID, &credential.Name, &kind, &data, &credential.CreatedAt)
	if err != nil {
		return nil, err
	}

	credential.Kind = models.CredentialKind(kind)

	var fields credentialData
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential data: %w", err)
	}

	credential.SMTP = fields.SMTP
	credential.Telegram = fields.Telegram

	return &credential, nil
}
