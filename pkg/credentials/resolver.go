// Package credentials resolves the connection secrets a workflow run
// needs before any node is dispatched.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// Resolver looks up the credential of a given kind for a user.
type Resolver interface {
	Resolve(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error)
}

const (
	defaultCacheTTL    = 30 * time.Second
	cacheSweepInterval = 1 * time.Minute
)

// StoreResolver resolves credentials from a repository, caching hits
// for a short TTL so a burst of runs does not hammer the store.
type StoreResolver struct {
	repository persistence.CredentialRepository
	cache      *cache.Cache
}

func NewStoreResolver(repository persistence.CredentialRepository) *StoreResolver {
	return &StoreResolver{
		repository: repository,
		cache:      cache.New(defaultCacheTTL, cacheSweepInterval),
	}
}

func (r *StoreResolver) Resolve(ctx context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	key := userID + ":" + string(kind)

	if cached, found := r.cache.Get(key); found {
		credential, ok := cached.(*models.Credential)
		if ok {
			return credential, nil
		}
	}

	credential, err := r.repository.GetByUserAndKind(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, credential, cache.DefaultExpiration)

	return credential, nil
}

// Invalidate drops the cached entry for a user and kind. Called after
// credential deletion so stale secrets do not outlive the record.
func (r *StoreResolver) Invalidate(userID string, kind models.CredentialKind) {
	r.cache.Delete(userID + ":" + string(kind))
}

// MemoryResolver serves credentials from an in-memory map. Used by
// tests.
type MemoryResolver struct {
	mu          sync.RWMutex
	credentials map[string]*models.Credential
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{credentials: make(map[string]*models.Credential)}
}

func (r *MemoryResolver) Add(credential *models.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.credentials[credential.UserID+":"+string(credential.Kind)] = credential
}

func (r *MemoryResolver) Resolve(_ context.Context, userID string, kind models.CredentialKind) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	credential, ok := r.credentials[userID+":"+string(kind)]
	if !ok {
		return nil, persistence.NewCredentialError("Resolve", userID, string(kind), persistence.ErrCredentialNotFound)
	}

	return credential, nil
}

// MissingCredentialError reports that a run cannot start because a
// required credential kind has no stored credential.
type MissingCredentialError struct {
	UserID string
	Kind   models.CredentialKind
	Err    error
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no %s credential stored for user %s", e.Kind, e.UserID)
}

func (e *MissingCredentialError) Unwrap() error {
	return e.Err
}

// IsMissingCredential checks whether an error is a missing-credential failure.
func IsMissingCredential(err error) bool {
	var missingErr *MissingCredentialError

	return errors.As(err, &missingErr)
}

// Snapshot resolves one credential per required kind up front. The
// first unresolvable kind aborts the snapshot, so a run either holds
// every secret it needs or dispatches nothing.
func Snapshot(ctx context.Context, resolver Resolver, userID string, kinds []models.CredentialKind) (map[models.CredentialKind]*models.Credential, error) {
	snapshot := make(map[models.CredentialKind]*models.Credential, len(kinds))

	for _, kind := range kinds {
		credential, err := resolver.Resolve(ctx, userID, kind)
		if err != nil {
			if persistence.IsCredentialNotFound(err) {
				return nil, &MissingCredentialError{UserID: userID, Kind: kind, Err: err}
			}

			return nil, fmt.Errorf("failed to resolve %s credential: %w", kind, err)
		}

		snapshot[kind] = credential
	}

	return snapshot, nil
}
