package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
)

func twoTokens() map[string]models.Token {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return map[string]models.Token{
		"id-1": {Issuer: "GitHub", Name: "alice", Secret: "JBSWY3DPEHPK3PXP", Created: created},
		"id-2": {Issuer: "AWS", Name: "root", Secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", Created: created},
	}
}

func TestTokenStore_MissingDocumentIsEmpty(t *testing.T) {
	s := NewTokenStore(NewFileRepository(t.TempDir()))

	tokens, err := s.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.NotNil(t, tokens)

	enc, err := s.IsEncrypted(context.Background())
	require.NoError(t, err)
	assert.False(t, enc)
}

func TestTokenStore_PlainRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(NewFileRepository(t.TempDir()))

	require.NoError(t, s.Save(ctx, twoTokens(), nil))

	raw, err := s.Raw(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id-1"`)
	assert.Contains(t, string(raw), "JBSWY3DPEHPK3PXP")

	got, err := s.Load(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, twoTokens(), got)
}

func TestTokenStore_EncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := setupSQLite(t)
	s := NewTokenStore(r)

	require.NoError(t, s.Save(ctx, twoTokens(), []byte("1234")))

	enc, err := s.IsEncrypted(ctx)
	require.NoError(t, err)
	assert.True(t, enc)

	raw, err := s.Raw(ctx)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "JBSWY3DPEHPK3PXP")

	_, err = s.Load(ctx, nil)
	require.ErrorIs(t, err, common.ErrLocked)

	_, err = s.Load(ctx, []byte("9999"))
	require.ErrorIs(t, err, common.ErrWrongCredential)

	got, err := s.Load(ctx, []byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, twoTokens(), got)
}

func TestTokenStore_CorruptDocuments(t *testing.T) {
	ctx := context.Background()

	docs := map[string]string{
		"empty file":         ``,
		"not json":           `{tokens`,
		"null":               `null`,
		"array":              `[]`,
		"partial blob":       `{"encrypted": true, "salt": "AAAAAAAAAAAAAAAAAAAAAA=="}`,
		"blob without flag":  `{"ciphertext": "AAAA", "salt": "AAAAAAAAAAAAAAAAAAAAAA=="}`,
		"token wrong shape":  `{"id-1": "JBSWY3DPEHPK3PXP"}`,
		"encrypted is false": `{"encrypted": false, "ciphertext": "AAAA", "salt": "AAAA"}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			repo := NewFileRepository(t.TempDir())
			require.NoError(t, repo.Set(ctx, TokensKey, []byte(doc)))
			s := NewTokenStore(repo)

			tokens, err := s.Load(ctx, []byte("1234"))
			require.ErrorIs(t, err, common.ErrCorruptStore)
			assert.Nil(t, tokens)
		})
	}
}
