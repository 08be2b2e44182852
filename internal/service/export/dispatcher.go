package export

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

var ErrDispatcherClosed = errors.New("export dispatcher is closed")

// Task is a unit of export work. It receives the submitter's context.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// Dispatcher routes tasks to a fixed set of workers by hashing a key,
// so tasks sharing a key (a run id) execute one at a time in submit order.
type Dispatcher struct {
	workers []chan job
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, logger *slog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan job, numWorkers),
		logger:  logger,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
	d.logger.Info("Export dispatcher started", "workers", len(d.workers))
}

// Stop rejects new tasks, lets queued ones finish and waits for the workers
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Export dispatcher stopped")
}

// Do queues task on the worker owning key and waits for it to finish.
// If ctx ends first Do returns ctx.Err(); the task still runs and sees the cancelled ctx.
func (d *Dispatcher) Do(ctx context.Context, key string, task Task) error {
	j := job{ctx: ctx, task: task, done: make(chan error, 1)}
	idx := d.shardIndex(key)

	if err := d.enqueue(ctx, idx, j); err != nil {
		return err
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, idx int, j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.workers[idx] <- j:
		metrics.ExportQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a key deterministically to a worker index
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan job) {
	defer d.wg.Done()

	depth := metrics.ExportQueueDepth.WithLabelValues(strconv.Itoa(id))
	for j := range ch {
		depth.Dec()
		j.done <- d.execute(id, j)
	}
}

func (d *Dispatcher) execute(id int, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Export task panicked", "worker_id", id, "panic", r)
			err = fmt.Errorf("export task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}
