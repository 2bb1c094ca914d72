package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

type stubSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *stubSweeper) Run(ctx context.Context) (order.Result, error) {
	s.calls.Add(1)
	return order.Result{Scanned: 2, Transitioned: 1}, s.err
}

func TestScheduler_Ticks(t *testing.T) {
	sw := &stubSweeper{}
	s := NewScheduler(sw, 10*time.Millisecond, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	n := sw.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, sw.calls.Load(), "no sweeps after Stop")

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_LogsErrors(t *testing.T) {
	for _, tt := range []struct {
		name  string
		err   error
		level string
		msg   string
	}{
		{"Locked", order.ErrSweepInProgress, "debug", "Sweep skipped, another instance holds the lock"},
		{"Failure", errors.New("database down"), "error", "Sweep failed"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			sw := &stubSweeper{err: tt.err}
			s := NewScheduler(sw, 10*time.Millisecond, zap.New(core))

			s.Start(context.Background())
			require.Eventually(t, func() bool {
				return logs.FilterMessage(tt.msg).Len() > 0
			}, time.Second, 5*time.Millisecond)
			s.Stop()

			entry := logs.FilterMessage(tt.msg).All()[0]
			assert.Equal(t, tt.level, entry.Level.String())
		})
	}
}

func TestScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(&stubSweeper{}, 0, nil)
	assert.Equal(t, time.Hour, s.interval)
}
