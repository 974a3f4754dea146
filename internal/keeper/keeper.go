// Package keeper owns the in-memory token collection. It is the single entry
// point the CLI and the gRPC daemon use: every mutation is persisted through
// the store under one writer lock, codes come from the TOTP engine and the
// collection is only reachable while the auth session is open.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xBounceIT/WinOTP-sub000/internal/auth"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/migration"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/store"
	"github.com/xBounceIT/WinOTP-sub000/internal/totp"
)

type Option func(*Keeper)

// WithClock sets the clock used for token creation times.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) { k.now = now }
}

// WithIDGenerator replaces uuid.NewString for token ids.
func WithIDGenerator(gen func() string) Option {
	return func(k *Keeper) { k.newID = gen }
}

// WithDecoder sets the migration decoder.
func WithDecoder(d *migration.Decoder) Option {
	return func(k *Keeper) { k.decoder = d }
}

type Keeper struct {
	store   *store.TokenStore
	auth    *auth.Manager
	engine  *totp.Engine
	decoder *migration.Decoder
	logger  logging.Logger
	now     func() time.Time
	newID   func() string

	mu         sync.Mutex
	tokens     map[string]models.Token
	loaded     bool
	credential []byte
	ascending  bool
}

// New builds a Keeper. Without protection the collection is loaded right
// away; with protection it stays locked until Unlock.
func New(ctx context.Context, ts *store.TokenStore, am *auth.Manager, engine *totp.Engine, logger logging.Logger, opts ...Option) (*Keeper, error) {
	k := &Keeper{
		store:     ts,
		auth:      am,
		engine:    engine,
		logger:    logger.With("module", "keeper"),
		now:       time.Now,
		newID:     uuid.NewString,
		ascending: true,
	}
	for _, o := range opts {
		o(k)
	}
	if k.decoder == nil {
		k.decoder = migration.NewDecoder(logger)
	}

	if am.Protected() {
		return k, nil
	}

	tokens, err := ts.Load(ctx, nil)
	if err != nil {
		if errors.Is(err, common.ErrLocked) {
			return nil, fmt.Errorf("%w: store is encrypted but no credential is configured", common.ErrInconsistentState)
		}
		return nil, err
	}
	k.tokens = tokens
	k.loaded = true
	k.logger.Info(ctx, "token store loaded", logging.Count("tokens", len(tokens)))
	return k, nil
}

// Protected reports whether a PIN or password is configured.
func (k *Keeper) Protected() bool {
	return k.auth.Protected()
}

// AuthType returns the configured credential kind.
func (k *Keeper) AuthType() auth.Type {
	return k.auth.Config().AuthType
}

// TimeoutMinutes returns the configured re-authentication timeout.
func (k *Keeper) TimeoutMinutes() int {
	return k.auth.Config().TimeoutMinutes
}

// LastAuth returns when the current session was opened.
func (k *Keeper) LastAuth() time.Time {
	return k.auth.LastAuth()
}

// Unlock verifies credential and, on success, loads the collection and keeps
// the credential for re-encryption until the session ends.
func (k *Keeper) Unlock(ctx context.Context, credential string) error {
	if !k.auth.Verify(credential) {
		k.logger.Warn(ctx, "credential verification failed")
		return common.ErrWrongCredential
	}
	if !k.auth.Protected() {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	cred := []byte(credential)
	tokens, err := k.store.Load(ctx, cred)
	if err != nil {
		common.WipeByteArray(cred)
		k.auth.Logout()
		if errors.Is(err, common.ErrWrongCredential) {
			return fmt.Errorf("%w: %v", common.ErrInconsistentState, err)
		}
		return err
	}

	k.wipeLocked()
	k.tokens = tokens
	k.credential = cred
	k.loaded = true
	k.logger.Info(ctx, "store unlocked", logging.Count("tokens", len(tokens)))
	return nil
}

// Verify is Unlock reduced to a yes/no answer.
func (k *Keeper) Verify(ctx context.Context, credential string) bool {
	return k.Unlock(ctx, credential) == nil
}

// IsAuthenticated reports whether the collection is currently reachable.
func (k *Keeper) IsAuthenticated() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sessionLocked() == nil
}

// Logout ends the session and drops the decrypted collection and the
// credential from memory.
func (k *Keeper) Logout(ctx context.Context) {
	k.auth.Logout()

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.auth.Protected() {
		k.wipeLocked()
		k.logger.Info(ctx, "store locked")
	}
}

// SetTimeout changes the re-authentication timeout; 0 disables it.
func (k *Keeper) SetTimeout(ctx context.Context, minutes int) error {
	if err := k.requireSession(); err != nil {
		return err
	}
	return k.auth.SetTimeout(ctx, minutes)
}

func (k *Keeper) requireSession() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sessionLocked()
}

// sessionLocked returns ErrLocked unless the collection is loaded and the
// auth session is still valid. An expired session wipes the collection.
func (k *Keeper) sessionLocked() error {
	if !k.auth.IsAuthenticated() {
		if k.loaded {
			k.wipeLocked()
			k.logger.Info(context.Background(), "session expired, store locked")
		}
		return common.ErrLocked
	}
	if !k.loaded {
		return common.ErrLocked
	}
	return nil
}

func (k *Keeper) wipeLocked() {
	common.WipeByteArray(k.credential)
	k.credential = nil
	for id := range k.tokens {
		k.engine.Forget(id)
	}
	k.tokens = nil
	k.loaded = false
}

// persistLocked writes the collection, encrypted while a credential is held.
func (k *Keeper) persistLocked(ctx context.Context) error {
	if err := k.store.Save(ctx, k.tokens, k.credential); err != nil {
		k.logger.Error(ctx, "persisting token store failed", logging.Err(err))
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}
