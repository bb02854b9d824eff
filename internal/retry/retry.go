// Package retry re-runs operations that fail with transient database or
// network errors.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Policy controls how often and how patiently an operation is retried.
// The wait before attempt n+1 is Delay + n*Step.
type Policy struct {
	Attempts int // including the first; values below 1 mean 1
	Delay    time.Duration
	Step     time.Duration
	Logger   *zap.Logger
}

// DefaultPolicy returns three attempts, waiting 5s then 5.5s.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Delay:    5 * time.Second,
		Step:     500 * time.Millisecond,
	}
}

// Wait returns the pause after the given failed attempt (1-based).
func (p Policy) Wait(attempt int) time.Duration {
	return p.Delay + time.Duration(attempt)*p.Step
}

// Do runs fn until it succeeds, fails with a permanent error, attempts run out
// or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}

		wait := p.Wait(attempt)
		logger.Warn("transient failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}

// transientStates are SQLSTATEs worth retrying: serialization failures,
// deadlocks and resource exhaustion.
var transientStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// permanent marks an error that must not be retried
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsTransient reports whether err is likely to succeed on a later attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var perm permanent
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception
		return strings.HasPrefix(pgErr.Code, "08") || transientStates[pgErr.Code]
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// a failed dial never reached the server; other socket errors may follow a commit
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}
