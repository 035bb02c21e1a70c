package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tensosense-server-go/internal/domain/auth/model"
	"tensosense-server-go/internal/domain/auth/store"
)

type (
	// User re-exports the account entity for callers.
	User = model.User
	// Identity re-exports the verified token subject.
	Identity = model.Identity
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	Store  store.Store
	Logger Logger
	Hasher PasswordHasher
	Token  *AuthToken
}

// Manager is the credential verifier: it checks passwords against the user
// store and issues and verifies session tokens. It keeps no token state.
type Manager struct {
	store  store.Store
	logger Logger
	hasher PasswordHasher
	token  *AuthToken
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      Identity
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("auth manager requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("auth manager requires a logger")
	}
	if opts.Token == nil {
		return nil, errors.New("auth manager requires a token signer")
	}
	if opts.Hasher == nil {
		opts.Hasher = NewBcryptHasher(0)
	}
	return &Manager{
		store:  opts.Store,
		logger: opts.Logger,
		hasher: opts.Hasher,
		token:  opts.Token,
	}, nil
}

// Seed stores every user whose username is not present yet.
func (m *Manager) Seed(ctx context.Context, users []User) error {
	for _, u := range users {
		_, err := m.store.Get(ctx, u.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("seed %s: %w", u.Username, err)
		}
		if err := m.store.Put(ctx, u); err != nil {
			return fmt.Errorf("seed %s: %w", u.Username, err)
		}
		m.logger.Debug("[Auth] seeded user %s", u.Username)
	}
	return nil
}

// Login checks the password for username and issues a token.
func (m *Manager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := m.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Debug("[Auth] login rejected, unknown user %s", username)
			return LoginResult{}, ErrUserNotFound
		}
		m.logger.Error("[Auth] user lookup failed for %s: %v", username, err)
		return LoginResult{}, err
	}

	if err := m.hasher.Compare(user.PasswordHash, password); err != nil {
		m.logger.Debug("[Auth] login rejected, bad password for %s", username)
		return LoginResult{}, ErrInvalidCredential
	}

	identity := user.Identity()
	token, expiresAt, err := m.token.GenerateToken(identity)
	if err != nil {
		m.logger.Error("[Auth] token issue failed for %s: %v", username, err)
		return LoginResult{}, err
	}
	m.logger.Info("[Auth] user %s logged in", username)
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      identity,
	}, nil
}

// Verify validates a presented token.
func (m *Manager) Verify(token string) (Identity, error) {
	return m.token.VerifyToken(token)
}

// Stats returns debug information from the store backend.
func (m *Manager) Stats(ctx context.Context) (map[string]any, error) {
	return m.store.Stats(ctx)
}

// Close releases underlying resources.
func (m *Manager) Close() error {
	if err := m.store.Close(context.Background()); err != nil {
		m.logger.Error("[Auth] failed closing user store: %v", err)
		return err
	}
	return nil
}
