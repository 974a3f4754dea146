// Package totp generates RFC 6238 codes (30 second step, 6 digits,
// HMAC-SHA1) against an injectable clock and caches them per token for the
// lifetime of a step.
package totp

import (
	"fmt"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

const (
	// Period is the TOTP step length in seconds.
	Period = 30
	// Digits is the fixed code length.
	Digits = 6
)

var opts = totp.ValidateOpts{
	Period:    Period,
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Clock supplies the time codes are computed for. The time synchronizer is
// the production clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Generate computes the code for secret at t. Secrets are Base32, padding
// optional, case-insensitive.
func Generate(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSecret, err)
	}
	return code, nil
}

// StepStart returns the beginning of the step containing t.
func StepStart(t time.Time) time.Time {
	return time.Unix(t.Unix()-mod(t.Unix(), Period), 0)
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Code is a generated code and its validity window.
type Code struct {
	Value            string
	SecondsRemaining int
	StepStart        time.Time
}

// ExpiresAt is the instant the code stops being current.
func (c Code) ExpiresAt() time.Time {
	return c.StepStart.Add(Period * time.Second)
}

// Result is one entry of a Batch call.
type Result struct {
	Code Code
	Err  error
}

// SecretSource resolves a token id to its secret for Batch.
type SecretSource interface {
	Secret(id string) (string, error)
}

type cacheEntry struct {
	secret string
	step   int64
	code   string
}

// Engine computes codes and caches the current one per token id.
type Engine struct {
	clock Clock

	mu        sync.Mutex
	cache     map[string]cacheEntry
	prunedFor int64
}

func NewEngine(clock Clock) *Engine {
	return &Engine{clock: clock, cache: make(map[string]cacheEntry)}
}

// CurrentCode returns the code of the current step for the token id with
// the given secret. Within one step repeated calls return the cached value.
//
// SecondsRemaining is the whole number of seconds until the step ends, in
// [0, 30). It is 0 during the final second and at the exact instant a step
// begins; callers should re-query rather than cache across that boundary.
func (e *Engine) CurrentCode(id, secret string) (Code, error) {
	return e.currentAt(id, secret, e.clock.Now())
}

func (e *Engine) currentAt(id, secret string, now time.Time) (Code, error) {
	start := StepStart(now)
	step := start.Unix() / Period
	remaining := int(start.Add(Period*time.Second).Sub(now)/time.Second) % Period

	e.mu.Lock()
	if entry, ok := e.cache[id]; ok && entry.secret == secret && entry.step == step {
		e.mu.Unlock()
		return Code{Value: entry.code, SecondsRemaining: remaining, StepStart: start}, nil
	}
	e.mu.Unlock()

	value, err := Generate(secret, start)
	if err != nil {
		return Code{}, err
	}

	e.mu.Lock()
	e.pruneLocked(step)
	e.cache[id] = cacheEntry{secret: secret, step: step, code: value}
	e.mu.Unlock()

	return Code{Value: value, SecondsRemaining: remaining, StepStart: start}, nil
}

// pruneLocked drops entries of earlier steps, once per step.
func (e *Engine) pruneLocked(step int64) {
	if step <= e.prunedFor {
		return
	}
	for id, entry := range e.cache {
		if entry.step < step {
			delete(e.cache, id)
		}
	}
	e.prunedFor = step
}

// NextCode returns the code of the step after the current one. The cache is
// not touched.
func (e *Engine) NextCode(secret string) (string, error) {
	return Generate(secret, StepStart(e.clock.Now()).Add(Period*time.Second))
}

// Batch computes current codes for ids at a single instant. Each id is
// independent: a missing or invalid secret only fails its own entry.
func (e *Engine) Batch(ids []string, src SecretSource) map[string]Result {
	now := e.clock.Now()
	out := make(map[string]Result, len(ids))
	for _, id := range ids {
		secret, err := src.Secret(id)
		if err != nil {
			out[id] = Result{Err: err}
			continue
		}
		code, err := e.currentAt(id, secret, now)
		out[id] = Result{Code: code, Err: err}
	}
	return out
}

// Forget drops the cached code of id.
func (e *Engine) Forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, id)
}

func (e *Engine) cached(id string) (cacheEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[id]
	return entry, ok
}
