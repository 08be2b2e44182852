package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_SameKeyRunsInOrder(t *testing.T) {
	d := NewDispatcher(4, discardLogger())
	d.Start()
	defer d.Stop()

	var mu sync.Mutex
	var order []int
	running := 0
	overlap := false

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Do(context.Background(), "run-1", func(ctx context.Context) error {
				mu.Lock()
				running++
				if running > 1 {
					overlap = true
				}
				order = append(order, i)
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Len(t, order, 5)
}

func TestDispatcher_ReturnsTaskError(t *testing.T) {
	d := NewDispatcher(2, discardLogger())
	d.Start()
	defer d.Stop()

	boom := errors.New("boom")
	err := d.Do(context.Background(), "run-1", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	d := NewDispatcher(1, discardLogger())
	d.Start()
	defer d.Stop()

	err := d.Do(context.Background(), "run-1", func(ctx context.Context) error { panic("bad render") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad render")

	// the worker survives the panic
	assert.NoError(t, d.Do(context.Background(), "run-1", func(ctx context.Context) error { return nil }))
}

func TestDispatcher_CancelledWait(t *testing.T) {
	d := NewDispatcher(1, discardLogger())
	d.Start()
	defer d.Stop()

	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.Do(ctx, "run-1", func(ctx context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(1, discardLogger())
	d.Start()
	d.Stop()
	d.Stop()

	err := d.Do(context.Background(), "run-1", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, discardLogger())
	first := d.shardIndex("run-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("run-42"))
	}
	assert.Less(t, first, 8)
}
