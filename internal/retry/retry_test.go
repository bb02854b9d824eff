package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, Step: time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := fastPolicy(3)
	p.Logger = zap.New(core)

	calls := 0
	err := Do(context.Background(), p, "save", func(context.Context) error {
		calls++
		if calls < 3 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "save", logs.All()[0].ContextMap()["op"])
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "save", func(context.Context) error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, io.ErrUnexpectedEOF)
	})

	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "attempt 3: unexpected EOF")
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("constraint violated")
	err := Do(context.Background(), fastPolicy(3), "save", func(context.Context) error {
		calls++
		return boom
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}

func TestDo_PermanentWrapper(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "save", func(context.Context) error {
		calls++
		return Permanent(io.ErrUnexpectedEOF)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Nil(t, Permanent(nil))
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Delay: time.Hour}

	calls := 0
	err := Do(ctx, p, "save", func(context.Context) error {
		calls++
		cancel()
		return io.ErrUnexpectedEOF
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, "save", func(context.Context) error {
		calls++
		return io.ErrUnexpectedEOF
	})
	assert.Equal(t, 1, calls)
}

func TestPolicy_Wait(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 5500*time.Millisecond, p.Wait(1))
	assert.Equal(t, 6*time.Second, p.Wait(2))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad input"), false},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"net timeout", timeoutErr{}, true},
		{"net dial error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"net read error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, false},
		{"connection failure state", &pgconn.PgError{Code: "08006"}, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), false},
		{"permanent", Permanent(io.ErrUnexpectedEOF), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
