package keeper

import (
	"context"
	"fmt"
	"strings"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/migration"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/otpauth"
)

// ImportResult summarizes a bulk import. Skipped counts every candidate that
// was not added; Duplicates and Invalid break part of it down.
type ImportResult struct {
	Added      int
	Skipped    int
	Duplicates int
	Invalid    int
}

func (r *ImportResult) merge(o ImportResult) {
	r.Added += o.Added
	r.Skipped += o.Skipped
	r.Duplicates += o.Duplicates
	r.Invalid += o.Invalid
}

// BulkImport adds tokens in one critical section and one write. Invalid
// tokens and secrets already present (in the store or earlier in the batch)
// are skipped. When the write fails nothing is added.
func (k *Keeper) BulkImport(ctx context.Context, tokens []models.Token) (ImportResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.sessionLocked(); err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	var added []string
	for _, t := range tokens {
		clean, err := t.Clean()
		if err != nil {
			res.Invalid++
			res.Skipped++
			continue
		}
		if k.hasSecretLocked(clean.Secret, "") {
			res.Duplicates++
			res.Skipped++
			continue
		}
		if clean.Created.IsZero() {
			clean.Created = k.now().UTC()
		}
		id, err := k.freeIDLocked()
		if err != nil {
			for _, id := range added {
				delete(k.tokens, id)
			}
			return ImportResult{}, err
		}
		k.tokens[id] = clean
		added = append(added, id)
	}

	if len(added) > 0 {
		if err := k.persistLocked(ctx); err != nil {
			for _, id := range added {
				delete(k.tokens, id)
			}
			return ImportResult{}, err
		}
	}
	res.Added = len(added)
	k.logger.Info(ctx, "tokens imported",
		logging.Count("added", res.Added),
		logging.Count("skipped", res.Skipped))
	return res, nil
}

// ImportMigrationURI decodes an otpauth-migration:// URI and imports its
// accounts. Records the engine cannot serve (HOTP, 8 digits, non-SHA1) and
// records the decoder dropped count as skipped.
func (k *Keeper) ImportMigrationURI(ctx context.Context, uri string) (ImportResult, error) {
	if err := k.requireSession(); err != nil {
		return ImportResult{}, err
	}

	payload, err := k.decoder.Decode(ctx, uri)
	if err != nil {
		return ImportResult{}, err
	}

	unsupported := 0
	tokens := make([]models.Token, 0, len(payload.Records))
	for _, rec := range payload.Records {
		if !rec.Supported() {
			unsupported++
			k.logger.Warn(ctx, "skipping unsupported migration record",
				"issuer", rec.Issuer, "type", rec.Type.String(),
				"digits", rec.Digits.Digits(), "algorithm", rec.Algorithm.String())
			continue
		}
		tokens = append(tokens, models.Token{
			Issuer: rec.Issuer,
			Name:   rec.Name,
			Secret: rec.Base32Secret(),
		})
	}

	res, err := k.BulkImport(ctx, tokens)
	if err != nil {
		return ImportResult{}, err
	}
	res.merge(ImportResult{Skipped: unsupported + payload.Dropped + payload.Skipped})
	return res, nil
}

// ImportURI routes a scanned string: migration URIs go to the decoder,
// otpauth:// URIs become a single token.
func (k *Keeper) ImportURI(ctx context.Context, raw string) (ImportResult, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(strings.ToLower(raw), "otpauth-migration://"):
		return k.ImportMigrationURI(ctx, raw)
	case otpauth.IsURI(raw):
		t, err := otpauth.Parse(raw)
		if err != nil {
			return ImportResult{}, err
		}
		if _, err := k.AddToken(ctx, t); err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Added: 1}, nil
	default:
		return ImportResult{}, fmt.Errorf("%w: unrecognized uri", common.ErrInvalidSecret)
	}
}

// ExportMigrationURI packs every token into a single migration URI that
// Google Authenticator can scan.
func (k *Keeper) ExportMigrationURI(ctx context.Context) (string, error) {
	tokens, err := k.Export(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}
	sortIDs(ids, tokens, true)

	records := make([]migration.Record, 0, len(ids))
	for _, id := range ids {
		t := tokens[id]
		raw, err := models.DecodeSecret(t.Secret)
		if err != nil {
			return "", fmt.Errorf("token %s: %w", id, err)
		}
		records = append(records, migration.Record{
			Secret:    raw,
			Name:      t.Name,
			Issuer:    t.Issuer,
			Algorithm: migration.AlgorithmSHA1,
			Digits:    migration.DigitsSix,
			Type:      migration.TypeTOTP,
		})
	}
	return migration.EncodeURI(records), nil
}
