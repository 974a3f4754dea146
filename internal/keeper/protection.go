package keeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/xBounceIT/WinOTP-sub000/internal/auth"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

// SetPIN protects the store with pin, re-encrypting the collection.
func (k *Keeper) SetPIN(ctx context.Context, pin string) error {
	if err := auth.ValidatePIN(pin); err != nil {
		return err
	}
	return k.setCredential(ctx, pin, k.auth.SetPIN)
}

// SetPassword protects the store with password, re-encrypting the
// collection.
func (k *Keeper) SetPassword(ctx context.Context, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	return k.setCredential(ctx, password, k.auth.SetPassword)
}

// setCredential swaps the credential and re-encrypts the collection under
// it. If the store cannot be rewritten the previous auth config is put back,
// or cleared when there was none, so that config and store never disagree.
func (k *Keeper) setCredential(ctx context.Context, credential string, set func(context.Context, string) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return err
	}

	prev := k.auth.Config()
	if err := set(ctx, credential); err != nil {
		return err
	}

	newCred := []byte(credential)
	oldCred := k.credential
	k.credential = newCred
	if err := k.persistLocked(ctx); err != nil {
		k.credential = oldCred
		common.WipeByteArray(newCred)

		var rbErr error
		if prev.Protected() {
			rbErr = k.auth.Restore(ctx, prev)
		} else {
			rbErr = k.auth.Clear(ctx)
		}
		if rbErr != nil {
			k.logger.Error(ctx, "rolling back auth config failed", logging.Err(rbErr))
			return errors.Join(err, rbErr)
		}
		return err
	}

	common.WipeByteArray(oldCred)
	k.logger.Info(ctx, "store protection set", "auth_type", string(k.auth.Config().AuthType))
	return nil
}

// DisableProtection removes the PIN or password after checking credential.
// The collection is decrypted from the store, written back in plain form and
// the auth config is cleared. A credential that verifies against the stored
// hash but does not decrypt the store yields ErrInconsistentState.
func (k *Keeper) DisableProtection(ctx context.Context, credential string) error {
	if !k.auth.Protected() {
		return nil
	}
	if !k.auth.Verify(credential) {
		return common.ErrWrongCredential
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	cred := []byte(credential)
	defer common.WipeByteArray(cred)

	tokens, err := k.store.Load(ctx, cred)
	if err != nil {
		if errors.Is(err, common.ErrWrongCredential) {
			return fmt.Errorf("%w: %v", common.ErrInconsistentState, err)
		}
		return err
	}

	if err := k.store.Save(ctx, tokens, nil); err != nil {
		return fmt.Errorf("save plain store: %w", err)
	}
	if err := k.auth.Clear(ctx); err != nil {
		return err
	}

	k.wipeLocked()
	k.tokens = tokens
	k.loaded = true
	k.logger.Info(ctx, "store protection disabled", logging.Count("tokens", len(tokens)))
	return nil
}
