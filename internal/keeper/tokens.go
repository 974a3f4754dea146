package keeper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/totp"
)

// TokenView is a token with its current code, as shown to users.
type TokenView struct {
	ID               string
	Issuer           string
	Name             string
	Code             string
	NextCode         string
	SecondsRemaining int
	// Err is set when no code could be produced for this token.
	Err error
}

type secrets map[string]string

func (s secrets) Secret(id string) (string, error) {
	v, ok := s[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrTokenNotFound, id)
	}
	return v, nil
}

// secretKey is the comparison form used for duplicate detection.
func secretKey(secret string) string {
	return strings.TrimRight(models.NormalizeSecret(secret), "=")
}

// ListTokens returns every token with its code, sorted by issuer then name.
func (k *Keeper) ListTokens(ctx context.Context) ([]TokenView, error) {
	return k.views(func(models.Token) bool { return true })
}

// SearchTokens is ListTokens restricted to tokens whose issuer or name
// contains query, case-insensitively. An empty query matches everything.
func (k *Keeper) SearchTokens(ctx context.Context, query string) ([]TokenView, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return k.views(func(t models.Token) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(t.Issuer), q) ||
			strings.Contains(strings.ToLower(t.Name), q)
	})
}

// SetSortAscending chooses the listing order.
func (k *Keeper) SetSortAscending(asc bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ascending = asc
}

func (k *Keeper) views(match func(models.Token) bool) ([]TokenView, error) {
	k.mu.Lock()
	if err := k.sessionLocked(); err != nil {
		k.mu.Unlock()
		return nil, err
	}
	snapshot := make(map[string]models.Token, len(k.tokens))
	src := make(secrets, len(k.tokens))
	ids := make([]string, 0, len(k.tokens))
	for id, t := range k.tokens {
		if !match(t) {
			continue
		}
		snapshot[id] = t
		src[id] = t.Secret
		ids = append(ids, id)
	}
	asc := k.ascending
	k.mu.Unlock()

	sortIDs(ids, snapshot, asc)

	codes := k.engine.Batch(ids, src)
	out := make([]TokenView, 0, len(ids))
	for _, id := range ids {
		t := snapshot[id]
		res := codes[id]
		v := TokenView{ID: id, Issuer: t.Issuer, Name: t.Name, Err: res.Err}
		if res.Err == nil {
			v.Code = res.Code.Value
			v.SecondsRemaining = res.Code.SecondsRemaining
			if next, err := totp.Generate(t.Secret, res.Code.ExpiresAt()); err == nil {
				v.NextCode = next
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func sortIDs(ids []string, tokens map[string]models.Token, asc bool) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := tokens[ids[i]], tokens[ids[j]]
		ai, bi := strings.ToLower(a.Issuer), strings.ToLower(b.Issuer)
		if ai != bi {
			return (ai < bi) == asc
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return (an < bn) == asc
		}
		return (ids[i] < ids[j]) == asc
	})
}

// GetToken returns the stored token with the given id.
func (k *Keeper) GetToken(ctx context.Context, id string) (models.Token, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return models.Token{}, err
	}
	t, ok := k.tokens[id]
	if !ok {
		return models.Token{}, fmt.Errorf("%w: %s", common.ErrTokenNotFound, id)
	}
	return t, nil
}

// AddToken validates t, rejects a secret already in the collection and
// persists it under a new id.
func (k *Keeper) AddToken(ctx context.Context, t models.Token) (string, error) {
	clean, err := t.Clean()
	if err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return "", err
	}
	if k.hasSecretLocked(clean.Secret, "") {
		return "", common.ErrDuplicateSecret
	}

	id, err := k.freeIDLocked()
	if err != nil {
		return "", err
	}
	if clean.Created.IsZero() {
		clean.Created = k.now().UTC()
	}
	k.tokens[id] = clean
	if err := k.persistLocked(ctx); err != nil {
		delete(k.tokens, id)
		return "", err
	}
	k.logger.Info(ctx, "token added", "id", id, "issuer", clean.Issuer)
	return id, nil
}

// UpdateToken replaces issuer, name and secret of an existing token. The
// creation time is kept.
func (k *Keeper) UpdateToken(ctx context.Context, id string, t models.Token) error {
	clean, err := t.Clean()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return err
	}
	prev, ok := k.tokens[id]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrTokenNotFound, id)
	}
	if k.hasSecretLocked(clean.Secret, id) {
		return common.ErrDuplicateSecret
	}

	clean.Created = prev.Created
	k.tokens[id] = clean
	if err := k.persistLocked(ctx); err != nil {
		k.tokens[id] = prev
		return err
	}
	k.engine.Forget(id)
	k.logger.Info(ctx, "token updated", "id", id)
	return nil
}

// DeleteToken removes a token.
func (k *Keeper) DeleteToken(ctx context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return err
	}
	prev, ok := k.tokens[id]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrTokenNotFound, id)
	}

	delete(k.tokens, id)
	if err := k.persistLocked(ctx); err != nil {
		k.tokens[id] = prev
		return err
	}
	k.engine.Forget(id)
	k.logger.Info(ctx, "token deleted", "id", id)
	return nil
}

// Export returns a copy of the collection keyed by id.
func (k *Keeper) Export(ctx context.Context) (map[string]models.Token, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return nil, err
	}
	out := make(map[string]models.Token, len(k.tokens))
	for id, t := range k.tokens {
		out[id] = t
	}
	return out, nil
}

func (k *Keeper) hasSecretLocked(secret, exceptID string) bool {
	key := secretKey(secret)
	for id, t := range k.tokens {
		if id != exceptID && secretKey(t.Secret) == key {
			return true
		}
	}
	return false
}

// maxIDAttempts bounds the search for an unused id.
const maxIDAttempts = 8

// freeIDLocked draws ids until one is not in the collection.
func (k *Keeper) freeIDLocked() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := k.newID()
		if _, taken := k.tokens[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free token id after %d attempts", maxIDAttempts)
}
