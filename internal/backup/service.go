package backup

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/store"
)

// Uploader puts one object into remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Report lists what a backup run uploaded.
type Report struct {
	Prefix string
	Keys   []string
}

// Service uploads the raw store documents. The token document goes up
// exactly as stored, so a protected store stays encrypted off-site.
type Service struct {
	repo     store.Repository
	uploader Uploader
	prefix   string
	now      func() time.Time
	logger   logging.Logger
}

func NewService(repo store.Repository, uploader Uploader, prefix string, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
		prefix:   prefix,
		now:      time.Now,
		logger:   logger.With("module", "backup"),
	}
}

// Backup uploads every existing document under
// <prefix>/<UTC timestamp>/<document key>.
func (s *Service) Backup(ctx context.Context) (Report, error) {
	rep := Report{Prefix: path.Join(s.prefix, s.now().UTC().Format("20060102T150405Z"))}

	for _, doc := range []string{store.TokensKey, store.AuthConfigKey} {
		data, err := s.repo.Get(ctx, doc)
		if err != nil {
			return rep, fmt.Errorf("read %s: %w", doc, err)
		}
		if data == nil {
			continue
		}
		key := path.Join(rep.Prefix, doc)
		if err := s.uploader.Upload(ctx, key, data); err != nil {
			s.logger.Error(ctx, "backup upload failed", "key", key, logging.Err(err))
			return rep, err
		}
		rep.Keys = append(rep.Keys, key)
	}

	s.logger.Info(ctx, "backup finished", "prefix", rep.Prefix, logging.Count("objects", len(rep.Keys)))
	return rep, nil
}
