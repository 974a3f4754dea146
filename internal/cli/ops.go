package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
)

var errBackupDisabled = errors.New("backup is not configured (set WINOTP_S3_BUCKET)")

func (a *App) printSync(st timesync.Status) {
	last := "never"
	if !st.LastSync.IsZero() {
		last = st.LastSync.Local().Format(time.DateTime)
	}
	fmt.Fprintf(a.out, "Offset: %+dms  Last sync: %s  Interval: %s  Synced: %t\n",
		st.OffsetMS, last, st.Interval, st.Synced)
}

// NTP shows the synchronizer state.
func (a *App) NTP(ctx context.Context) error {
	a.printSync(a.sync.Status())
	return nil
}

// Sync runs one synchronization round now.
func (a *App) Sync(ctx context.Context) error {
	st, err := a.sync.Sync(ctx)
	if err != nil {
		a.logger.Warn(ctx, "manual time sync failed", logging.Err(err))
		return fmt.Errorf("time sync failed, keeping previous offset: %w", err)
	}
	a.printSync(st)
	return nil
}

// Backup uploads the store documents to the configured bucket.
func (a *App) Backup(ctx context.Context) error {
	if a.backup == nil {
		return errBackupDisabled
	}
	rep, err := a.backup.Backup(ctx)
	if err != nil {
		return err
	}
	for _, k := range rep.Keys {
		fmt.Fprintln(a.out, "Uploaded", k)
	}
	return nil
}
