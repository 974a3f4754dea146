package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

func setupSQLite(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "winotp.db"), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), db
}

func TestSQLiteRepository_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := setupSQLite(t)

	got, err := r.Get(ctx, AuthConfigKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Set(ctx, AuthConfigKey, []byte("v1")))
	require.NoError(t, r.Set(ctx, AuthConfigKey, []byte("v2")))

	got, err = r.Get(ctx, AuthConfigKey)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, r.Delete(ctx, AuthConfigKey))
	got, err = r.Get(ctx, AuthConfigKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	revs, err := r.Revisions(ctx, AuthConfigKey)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "v2", string(revs[0]), "newest revision first")
	assert.Equal(t, "v1", string(revs[1]))
}

func TestSQLiteRepository_TokenDocumentHasNoRevisions(t *testing.T) {
	ctx := context.Background()
	r, _ := setupSQLite(t)
	s := NewTokenStore(r)

	tokens := twoTokens()
	require.NoError(t, s.Save(ctx, tokens, nil))
	require.NoError(t, s.Save(ctx, tokens, []byte("1234")))

	current, err := r.Get(ctx, TokensKey)
	require.NoError(t, err)
	revs, err := r.Revisions(ctx, TokensKey)
	require.NoError(t, err)
	assert.Empty(t, revs)

	for _, tok := range tokens {
		assert.NotContains(t, string(current), tok.Secret)
	}

	require.NoError(t, r.Delete(ctx, TokensKey))
	revs, err = r.Revisions(ctx, TokensKey)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestSQLiteRepository_DropsLegacyTokenRevisions(t *testing.T) {
	ctx := context.Background()
	r, db := setupSQLite(t)

	_, err := db.ExecContext(ctx, `INSERT INTO document_revisions (key, value) VALUES (?, ?)`,
		TokensKey, []byte(`{"id-1":{"secret":"JBSWY3DPEHPK3PXP"}}`))
	require.NoError(t, err)

	require.NoError(t, r.Set(ctx, TokensKey, []byte(`{"encrypted":true}`)))

	revs, err := r.Revisions(ctx, TokensKey)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestSQLiteRepository_RevisionsArePruned(t *testing.T) {
	ctx := context.Background()
	r, _ := setupSQLite(t)

	for i := 0; i < MaxRevisions+4; i++ {
		require.NoError(t, r.Set(ctx, AuthConfigKey, []byte(fmt.Sprintf("v%d", i))))
	}

	revs, err := r.Revisions(ctx, AuthConfigKey)
	require.NoError(t, err)
	require.Len(t, revs, MaxRevisions)
	assert.Equal(t, fmt.Sprintf("v%d", MaxRevisions+2), string(revs[0]))

	other, err := r.Revisions(ctx, TokensKey)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	_, db := setupSQLite(t)
	require.NoError(t, RunMigrations(context.Background(), db, logging.NewNopLogger()))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOpenSQLite_MigrationOutputGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewTextLogger(&buf, "debug")

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "winotp.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Contains(t, buf.String(), "module=migrations")
	assert.Contains(t, buf.String(), "00001_documents.sql")
}
