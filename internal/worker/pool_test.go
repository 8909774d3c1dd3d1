package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownDrainsTasks(t *testing.T) {
	p := New(2)
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		_, err := p.Submit("sleep", func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			done.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), done.Load())

	_, err := p.Submit("late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrencyBound(t *testing.T) {
	p := New(2)
	var running, peak atomic.Int32
	for i := 0; i < 6; i++ {
		_, err := p.Submit("bounded", func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPanicsAndErrorsAreContained(t *testing.T) {
	p := New(1)
	var after atomic.Bool
	_, err := p.Submit("panics", func(context.Context) error { panic("boom") })
	require.NoError(t, err)
	_, err = p.Submit("fails", func(context.Context) error { return errors.New("nope") })
	require.NoError(t, err)
	_, err = p.Submit("after", func(context.Context) error {
		after.Store(true)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, after.Load())
}

func TestShutdownDeadlineCancelsTasks(t *testing.T) {
	p := New(1)
	_, err := p.Submit("blocks", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}

func TestHooks(t *testing.T) {
	var queued, started, finished atomic.Int32
	p := New(1, WithHooks(Hooks{
		Queued:   func() { queued.Add(1) },
		Started:  func() { started.Add(1) },
		Finished: func() { finished.Add(1) },
	}))
	id, err := p.Submit("noop", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(1), queued.Load())
	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), finished.Load())
}
