package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/cryptox"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
)

// TokenStore reads and writes the token collection document. On disk the
// document is either a plain JSON object keyed by token id or, when
// protection is enabled, a cryptox.EncryptedBlob.
type TokenStore struct {
	repo Repository
}

func NewTokenStore(repo Repository) *TokenStore {
	return &TokenStore{repo: repo}
}

// blobMarkers are the keys that identify an encrypted document. A document
// carrying any of them is never read as a plain token map.
var blobMarkers = []string{"encrypted", "ciphertext", "salt", "data"}

// decodeDocument splits a raw document into either a blob or a plain map.
func decodeDocument(data []byte) (*cryptox.EncryptedBlob, map[string]models.Token, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
	}
	if top == nil {
		return nil, nil, fmt.Errorf("%w: document is null", common.ErrCorruptStore)
	}

	for _, k := range blobMarkers {
		if _, ok := top[k]; ok {
			var blob cryptox.EncryptedBlob
			if err := json.Unmarshal(data, &blob); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
			}
			if err := blob.Validate(); err != nil {
				return nil, nil, err
			}
			return &blob, nil, nil
		}
	}

	tokens := make(map[string]models.Token, len(top))
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
	}
	return nil, tokens, nil
}

// IsEncrypted reports whether the stored document is an encrypted blob.
// A missing document is not encrypted.
func (s *TokenStore) IsEncrypted(ctx context.Context) (bool, error) {
	data, err := s.repo.Get(ctx, TokensKey)
	if err != nil || data == nil {
		return false, err
	}
	blob, _, err := decodeDocument(data)
	if err != nil {
		return false, err
	}
	return blob != nil, nil
}

// Load returns the stored token collection.
//
// A missing document yields an empty collection. An empty or malformed
// document yields common.ErrCorruptStore, never an empty collection. An
// encrypted document needs credential; without one common.ErrLocked is
// returned, with a wrong one common.ErrWrongCredential.
func (s *TokenStore) Load(ctx context.Context, credential []byte) (map[string]models.Token, error) {
	data, err := s.repo.Get(ctx, TokensKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return map[string]models.Token{}, nil
	}

	blob, tokens, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return tokens, nil
	}

	if credential == nil {
		return nil, common.ErrLocked
	}

	tokens = map[string]models.Token{}
	if err := cryptox.DecryptStore(blob, credential, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Save writes tokens. A nil credential writes the plain map; otherwise the
// collection is sealed into a fresh EncryptedBlob.
func (s *TokenStore) Save(ctx context.Context, tokens map[string]models.Token, credential []byte) error {
	if tokens == nil {
		tokens = map[string]models.Token{}
	}

	var doc any = tokens
	if credential != nil {
		blob, err := cryptox.EncryptStore(tokens, credential)
		if err != nil {
			return fmt.Errorf("encrypt store: %w", err)
		}
		doc = blob
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	return s.repo.Set(ctx, TokensKey, data)
}

// Raw returns the stored document bytes as they are, encrypted or not.
func (s *TokenStore) Raw(ctx context.Context) ([]byte, error) {
	return s.repo.Get(ctx, TokensKey)
}
