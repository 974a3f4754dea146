package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xBounceIT/WinOTP-sub000/internal/dbx"
)

// MaxRevisions is how many replaced values of a document the SQLite
// repository keeps.
const MaxRevisions = 5

// unarchived keys never get revisions. The token document is plaintext
// while protection is off, and a copy must not outlive the switch to an
// EncryptedBlob.
var unarchived = map[string]bool{TokensKey: true}

// SQLiteRepository stores documents in the documents table. Every
// overwrite or delete archives the previous value in document_revisions
// within the same transaction, except for unarchived keys. Writes run with
// secure_delete on so freed pages are zeroed.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := prepareWrite(ctx, tx, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set document[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := prepareWrite(ctx, tx, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete document[%s]: %w", key, err)
	}
	return nil
}

// Revisions returns the archived values of key, newest first.
func (r *SQLiteRepository) Revisions(ctx context.Context, key string) ([][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT value FROM document_revisions WHERE key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions[%s]: %w", key, err)
	}
	defer rows.Close()

	var result [][]byte
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan revision row: %w", err)
		}
		result = append(result, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revision rows: %w", err)
	}

	return result, nil
}

// prepareWrite turns on secure_delete for the connection and archives the
// current value of key.
func prepareWrite(ctx context.Context, tx dbx.DBTX, key string) error {
	if _, err := tx.ExecContext(ctx, `PRAGMA secure_delete = ON`); err != nil {
		return err
	}
	return archive(ctx, tx, key)
}

// archive copies the current value of key (if any) into document_revisions
// and prunes revisions beyond MaxRevisions. For unarchived keys it drops
// whatever revisions an older database still holds.
func archive(ctx context.Context, tx dbx.DBTX, key string) error {
	if unarchived[key] {
		_, err := tx.ExecContext(ctx, `DELETE FROM document_revisions WHERE key = ?`, key)
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_revisions (key, value)
		SELECT key, value FROM documents WHERE key = ?
	`, key); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM document_revisions
		WHERE key = ? AND id NOT IN (
			SELECT id FROM document_revisions WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, MaxRevisions)
	return err
}
