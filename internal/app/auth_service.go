package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"codeconnect/internal/domain"
	"github.com/google/uuid"
)

// ErrEmptyName is returned when logging in with a blank display name.
var ErrEmptyName = errors.New("display name is empty")

// AuthService is the simulated identity provider: login generates a fresh
// opaque user id for the given display name, logout clears it. There is no
// password or verification; the identity is trusted as-is.
type AuthService struct {
	blobs BlobStore
	newID func() string

	mu       sync.RWMutex
	user     *domain.User
	onLogout []func()
}

// NewAuthService restores any persisted identity from the blob store.
func NewAuthService(ctx context.Context, blobs BlobStore) (*AuthService, error) {
	a := &AuthService{
		blobs: blobs,
		newID: uuid.NewString,
	}
	data, err := blobs.Read(ctx, KeyIdentity)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		return a, nil
	case err != nil:
		return nil, fmt.Errorf("restore identity: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("restore identity: %w", err)
	}
	a.user = &user
	return a, nil
}

// Login creates and persists a new identity for name. Any previous identity
// is replaced.
func (a *AuthService) Login(ctx context.Context, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, ErrEmptyName
	}

	user := domain.User{
		ID:    "user-" + a.newID(),
		Name:  name,
		Email: strings.ToLower(strings.Join(strings.Fields(name), "")) + "@codeconnect.com",
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, err
	}
	if err := a.blobs.Write(ctx, KeyIdentity, data); err != nil {
		return domain.User{}, fmt.Errorf("persist identity: %w", err)
	}

	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	return user, nil
}

// Logout drops the identity, removes its persisted record, and runs
// registered logout hooks (e.g. cancelling pending chat auto-replies).
// Entity collections are left intact; only the identity key is cleared.
func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.user = nil
	hooks := append([]func(){}, a.onLogout...)
	a.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	if err := a.blobs.Delete(ctx, KeyIdentity); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

// Current returns the session identity and whether one is present.
func (a *AuthService) Current() (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return domain.User{}, false
	}
	return *a.user, true
}

// OnLogout registers a hook invoked on every logout.
func (a *AuthService) OnLogout(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLogout = append(a.onLogout, fn)
}
