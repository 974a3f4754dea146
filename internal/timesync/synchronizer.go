// Package timesync keeps an NTP-derived offset to the local clock and serves
// "accurate now" to the code engine.
package timesync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

const (
	DefaultInterval = 300 * time.Second
	MinInterval     = 60 * time.Second
	MaxInterval     = 3600 * time.Second
	DefaultTimeout  = time.Second

	// weight of a fresh sample against the previous offset
	smoothing = 0.7

	// spacing of Now-triggered retries while no sync has succeeded yet
	unsyncedRetry = 10 * time.Second
)

// DefaultServers is the rotation used when none is configured.
var DefaultServers = []string{
	"pool.ntp.org",
	"time.google.com",
	"time.windows.com",
	"time.nist.gov",
}

// QueryFunc asks host for its current time.
type QueryFunc func(ctx context.Context, host string, timeout time.Duration) (time.Time, error)

// NTPQuery is the production QueryFunc.
func NTPQuery(ctx context.Context, host string, timeout time.Duration) (time.Time, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return time.Time{}, context.DeadlineExceeded
	}
	resp, err := ntp.QueryWithOptions(host, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return resp.Time, nil
}

// Status is a snapshot of the synchronizer state.
type Status struct {
	Offset   time.Duration
	OffsetMS int64
	LastSync time.Time
	Interval time.Duration
	Running  bool
	// Synced is true when a sync succeeded within the last interval.
	Synced  bool
	Syncing bool
}

type Option func(*Synchronizer)

func WithServers(servers ...string) Option {
	return func(s *Synchronizer) {
		if len(servers) > 0 {
			s.servers = append([]string(nil), servers...)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.interval = clampInterval(d) }
}

func WithQueryFunc(q QueryFunc) Option {
	return func(s *Synchronizer) { s.query = q }
}

// WithLocalClock replaces the local wall clock.
func WithLocalClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.local = now }
}

// WithInitialDelay sets how long Run waits before the first sync.
func WithInitialDelay(d time.Duration) Option {
	return func(s *Synchronizer) { s.initialDelay = d }
}

// Synchronizer maintains the offset between local time and NTP time.
type Synchronizer struct {
	servers      []string
	timeout      time.Duration
	initialDelay time.Duration
	query        QueryFunc
	local        func() time.Time
	logger       logging.Logger

	mu       sync.Mutex
	offset   time.Duration
	lastSync time.Time
	synced   bool
	interval time.Duration
	next     int
	running  bool
	runCtx   context.Context

	// local time of the last SynchronizeOnce call, successful or not
	lastAttempt time.Time

	// serializes queries
	syncMu   sync.Mutex
	syncing  atomic.Bool
	inflight atomic.Bool
}

func NewSynchronizer(logger logging.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		servers:      append([]string(nil), DefaultServers...),
		timeout:      DefaultTimeout,
		initialDelay: time.Second,
		query:        NTPQuery,
		local:        time.Now,
		logger:       logger.With("module", "timesync"),
		interval:     DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clampInterval(d time.Duration) time.Duration {
	switch {
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	default:
		return d
	}
}

// SetInterval changes the resync interval, clamped to [60s, 3600s]. A running
// loop picks it up at its next reschedule.
func (s *Synchronizer) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = clampInterval(d)
}

// Now returns local time corrected by the current offset. It never blocks on
// the network. When running and the offset is stale a resync is started in
// the background. Before the first successful sync the offset counts as
// stale once an attempt has failed, retried at most every unsyncedRetry.
func (s *Synchronizer) Now() time.Time {
	local := s.local()

	s.mu.Lock()
	offset := s.offset
	stale := s.running && s.staleLocked(local)
	ctx := s.runCtx
	s.mu.Unlock()

	if stale {
		s.resyncAsync(ctx)
	}
	return local.Add(offset)
}

func (s *Synchronizer) staleLocked(local time.Time) bool {
	if s.synced {
		return local.Sub(s.lastSync) >= s.interval
	}
	return !s.lastAttempt.IsZero() && local.Sub(s.lastAttempt) >= unsyncedRetry
}

func (s *Synchronizer) resyncAsync(ctx context.Context) {
	if !s.inflight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.inflight.Store(false)
		if _, err := s.SynchronizeOnce(ctx); err != nil {
			s.logger.Warn(ctx, "background resync failed", logging.Err(err))
		}
	}()
}

// SynchronizeOnce queries the servers in rotation, starting from the last
// one that answered, and updates the offset on the first success. When every
// server fails the offset is left untouched and ErrNetworkUnavailable is
// returned.
func (s *Synchronizer) SynchronizeOnce(ctx context.Context) (time.Duration, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	s.mu.Lock()
	start := s.next
	s.lastAttempt = s.local()
	s.mu.Unlock()

	n := len(s.servers)
	var lastErr error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
		}
		idx := (start + i) % n
		host := s.servers[idx]

		localAtRequest := s.local()
		remote, err := s.query(ctx, host, s.timeout)
		if err != nil {
			lastErr = err
			s.logger.Debug(ctx, "ntp query failed", "server", host, logging.Err(err))
			continue
		}
		sample := remote.Sub(localAtRequest)

		s.mu.Lock()
		if s.synced {
			sample = time.Duration(smoothing*float64(sample) + (1-smoothing)*float64(s.offset))
		}
		s.offset = sample
		s.lastSync = localAtRequest
		s.synced = true
		s.next = idx
		s.mu.Unlock()

		s.logger.Debug(ctx, "time synchronized", "server", host, logging.Duration("offset", sample))
		return sample, nil
	}
	if lastErr == nil {
		return 0, fmt.Errorf("%w: no ntp servers configured", common.ErrNetworkUnavailable)
	}
	return 0, fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, lastErr)
}

// Sync runs one synchronization and reports the resulting status.
func (s *Synchronizer) Sync(ctx context.Context) (Status, error) {
	_, err := s.SynchronizeOnce(ctx)
	return s.Status(), err
}

func (s *Synchronizer) Status() Status {
	local := s.local()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Offset:   s.offset,
		OffsetMS: s.offset.Milliseconds(),
		LastSync: s.lastSync,
		Interval: s.interval,
		Running:  s.running,
		Synced:   s.synced && local.Sub(s.lastSync) < s.interval,
		Syncing:  s.syncing.Load(),
	}
}

// Run synchronizes shortly after start and then every interval until ctx is
// done. Sync failures are logged and do not stop the loop.
func (s *Synchronizer) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.runCtx = ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.runCtx = nil
		s.mu.Unlock()
	}()

	s.logger.Info(ctx, "time synchronizer started")
	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "time synchronizer stopped")
			return
		case <-timer.C:
			if _, err := s.SynchronizeOnce(ctx); err != nil {
				s.logger.Warn(ctx, "time sync failed", logging.Err(err))
			}
			s.mu.Lock()
			interval := s.interval
			s.mu.Unlock()
			timer.Reset(interval)
		}
	}
}
