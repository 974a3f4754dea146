package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/cryptox"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/store"
)

// Manager owns the AuthConfig and the session state machine:
//
//	Unauthenticated --Verify ok--> Authenticated
//	Authenticated --timeout / Logout--> Unauthenticated
//
// Without protection the session is trivially Authenticated.
type Manager struct {
	repo   store.Repository
	logger logging.Logger
	params cryptox.Argon2Params
	now    func() time.Time

	mu            sync.Mutex
	cfg           Config
	authenticated bool
	lastAuth      time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mainly for timeout tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithHashParams sets the argon2id cost used for new credential hashes.
func WithHashParams(p cryptox.Argon2Params) Option {
	return func(m *Manager) { m.params = p }
}

// NewManager loads the auth config from repo. A missing document means no
// protection; a malformed one is reported as common.ErrCorruptStore.
func NewManager(ctx context.Context, repo store.Repository, logger logging.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		repo:   repo,
		logger: logger.With("module", "auth"),
		params: cryptox.DefaultArgon2Params,
		now:    time.Now,
		cfg:    Config{AuthType: TypeNone},
	}
	for _, o := range opts {
		o(m)
	}

	data, err := repo.Get(ctx, store.AuthConfigKey)
	if err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if data != nil {
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: auth config: %v", common.ErrCorruptStore, err)
		}
		if cfg.AuthType == "" {
			cfg.AuthType = TypeNone
		}
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("%w: auth config: %v", common.ErrCorruptStore, err)
		}
		m.cfg = cfg
	}

	return m, nil
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *Manager) Protected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Protected()
}

func (m *Manager) persist(ctx context.Context, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode auth config: %w", err)
	}
	if err := m.repo.Set(ctx, store.AuthConfigKey, data); err != nil {
		return fmt.Errorf("save auth config: %w", err)
	}
	return nil
}

// SetPIN validates and hashes pin, persists it as the only credential and
// marks the session authenticated.
func (m *Manager) SetPIN(ctx context.Context, pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	return m.setCredential(ctx, TypePIN, pin)
}

// SetPassword validates and hashes password, persists it as the only
// credential and marks the session authenticated.
func (m *Manager) SetPassword(ctx context.Context, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	return m.setCredential(ctx, TypePassword, password)
}

func (m *Manager) setCredential(ctx context.Context, t Type, credential string) error {
	hash, err := cryptox.HashCredential([]byte(credential), m.params)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Config{AuthType: t, TimeoutMinutes: m.cfg.TimeoutMinutes}
	if t == TypePIN {
		cfg.PINHash = hash
	} else {
		cfg.PasswordHash = hash
	}

	if err := m.persist(ctx, cfg); err != nil {
		return err
	}

	m.cfg = cfg
	m.authenticated = true
	m.lastAuth = m.now()
	m.logger.Info(ctx, "credential set", "auth_type", string(t))
	return nil
}

// Clear removes any credential and reverts auth_type to none. The timeout
// setting is kept.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Config{AuthType: TypeNone, TimeoutMinutes: m.cfg.TimeoutMinutes}
	if err := m.persist(ctx, cfg); err != nil {
		return err
	}

	m.cfg = cfg
	m.authenticated = false
	m.lastAuth = time.Time{}
	m.logger.Info(ctx, "protection cleared")
	return nil
}

// Restore reinstates a configuration previously returned by Config, used to
// undo a credential change whose store re-encryption failed. The session
// state is left as it is.
func (m *Manager) Restore(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, cfg); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

// SetTimeout sets the re-authentication timeout in minutes; 0 disables it.
func (m *Manager) SetTimeout(ctx context.Context, minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: timeout must not be negative", common.ErrInvalidCredential)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.cfg
	cfg.TimeoutMinutes = minutes
	if err := m.persist(ctx, cfg); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

// Verify checks credential against the stored hash. With no protection
// configured it returns true: an open store has nothing to verify against.
// Success moves the session to Authenticated.
func (m *Manager) Verify(credential string) bool {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	if !cfg.Protected() {
		return true
	}

	ok, err := cryptox.VerifyCredential([]byte(credential), cfg.hash())
	if err != nil {
		m.logger.Error(context.Background(), "stored credential hash unusable", logging.Err(err))
		return false
	}
	if !ok {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// the credential may have changed while hashing
	if m.cfg.hash() != cfg.hash() {
		return false
	}
	m.authenticated = true
	m.lastAuth = m.now()
	return true
}

// CheckTimeout reports whether a session authenticated at lastAuth has
// expired. It is always false when protection is off or the timeout is 0.
func (m *Manager) CheckTimeout(lastAuth time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkTimeout(lastAuth)
}

func (m *Manager) checkTimeout(lastAuth time.Time) bool {
	if !m.cfg.Protected() || m.cfg.TimeoutMinutes == 0 {
		return false
	}
	return m.now().Sub(lastAuth) >= time.Duration(m.cfg.TimeoutMinutes)*time.Minute
}

// IsAuthenticated reports the session state, expiring it first when the
// timeout has elapsed.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Protected() {
		return true
	}
	if !m.authenticated {
		return false
	}
	if m.checkTimeout(m.lastAuth) {
		m.authenticated = false
		m.logger.Info(context.Background(), "session expired")
		return false
	}
	return true
}

// Logout ends the session. It is a no-op without protection.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = false
	m.lastAuth = time.Time{}
}

// LastAuth returns the time of the last successful verification, zero when
// the session is not authenticated.
func (m *Manager) LastAuth() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated {
		return time.Time{}
	}
	return m.lastAuth
}
