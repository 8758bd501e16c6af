package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// CredentialRepository stores one JSON file per credential under
// <root>/credentials.
type CredentialRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewCredentialRepository(root string) *CredentialRepository {
	return &CredentialRepository{dir: filepath.Join(root, "credentials")}
}

func (r *CredentialRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *CredentialRepository) Create(ctx context.Context, credential *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.listLocked()
	if err != nil {
		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	for _, other := range existing {
		if other.UserID == credential.UserID && other.Name == credential.Name {
			return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind),
				persistence.ErrCredentialAlreadyExists)
		}
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	data, err := json.MarshalIndent(credential, "", "  ")
	if err != nil {
		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	if err := os.WriteFile(r.path(credential.ID), data, fileMode); err != nil {
		return persistence.NewCredentialError("Create", credential.UserID, string(credential.Kind), err)
	}

	return nil
}

func (r *CredentialRepository) GetByUserAndKind(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	credentials, err := r.listLocked()
	if err != nil {
		return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind), err)
	}

	for _, credential := range credentials {
		if credential.UserID == userID && credential.Kind == kind {
			return credential, nil
		}
	}

	return nil, persistence.NewCredentialError("GetByUserAndKind", userID, string(kind), persistence.ErrCredentialNotFound)
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.listLocked()
	if err != nil {
		return nil, persistence.NewCredentialError("ListByUser", userID, "", err)
	}

	credentials := make([]*models.Credential, 0)

	for _, credential := range all {
		if credential.UserID == userID {
			credentials = append(credentials, credential)
		}
	}

	sort.Slice(credentials, func(i, j int) bool { return credentials[i].CreatedAt.Before(credentials[j].CreatedAt) })

	return credentials, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		return persistence.NewCredentialError("Delete", userID, "", persistence.ErrCredentialNotFound)
	}

	var credential models.Credential
	if err := json.Unmarshal(data, &credential); err != nil {
		return persistence.NewCredentialError("Delete", userID, "", err)
	}

	if credential.UserID != userID {
		return persistence.NewCredentialError("Delete", userID, "", persistence.ErrCredentialNotFound)
	}

	if err := os.Remove(r.path(id)); err != nil {
		return persistence.NewCredentialError("Delete", userID, "", err)
	}

	return nil
}

func (r *CredentialRepository) listLocked() ([]*models.Credential, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	credentials := make([]*models.Credential, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var credential models.Credential
		if err := json.Unmarshal(data, &credential); err != nil {
			return nil, err
		}

		credentials = append(credentials, &credential)
	}

	return credentials, nil
}
