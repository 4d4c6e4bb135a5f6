// Package sender orders Bot API calls per chat.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/menubot/core/logger"
)

var (
	// ErrQueueClosed is returned when a job is submitted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the worker owning the key has no free queue slot.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options sizes the dispatcher. Zero values take defaults.
type Options struct {
	// QueueSize bounds pending jobs per worker. Default 64.
	QueueSize int
	// Workers is the number of shards. Default 4.
	Workers int
	// SlowThreshold logs a warning for jobs running longer than this. Default 5s.
	SlowThreshold time.Duration
}

type job struct {
	ctx      context.Context
	key      int64
	action   string
	endpoint string
	run      func() error
	done     chan error
}

// Dispatcher runs jobs on a fixed set of workers. Jobs sharing a key always
// land on the same worker and run in submission order, so updates of one chat
// never race each other while different chats proceed in parallel. Jobs are
// executed exactly once; a failed job is reported, never retried.
type Dispatcher struct {
	opts   Options
	queues []chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 5 * time.Second
	}
	d := &Dispatcher{opts: opts, queues: make([]chan job, opts.Workers)}
	for i := range d.queues {
		q := make(chan job, opts.QueueSize)
		d.queues[i] = q
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range q {
				j.done <- d.execute(j)
			}
		}()
	}
	return d
}

// Do runs fn on the worker owning key and waits for its result. When the
// queue is full or closed, run executes on the caller's goroutine instead.
// A nil dispatcher always runs inline.
func (d *Dispatcher) Do(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if d == nil {
		return run()
	}
	j := job{ctx: ctx, key: key, action: action, endpoint: endpoint, run: run, done: make(chan error, 1)}
	if err := d.enqueue(j); err != nil {
		logger.Warn(ctx, "tg.sender", "queue.fallback", append(j.attrs(), slog.String("err", err.Error()))...)
		return d.execute(j)
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queues[d.shardFor(j.key)] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shardFor(key int64) int {
	n := int64(len(d.queues))
	return int((key%n + n) % n)
}

// ErrorCount returns how many jobs failed so far.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) execute(j job) error {
	start := time.Now()
	logger.Debug(j.ctx, "tg.sender", "send.start", j.attrs()...)
	err := runSafe(j.run)
	took := time.Since(start)

	attrs := append(j.attrs(), slog.Duration("elapsed", took))
	if took > d.opts.SlowThreshold {
		logger.Warn(j.ctx, "tg.sender", "send.slow", attrs...)
	}
	if err != nil {
		d.failed.Add(1)
		logger.Error(j.ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("err", SanitizeError(err)),
			slog.String("err_code", classifyError(err)),
		)...)
		return err
	}
	logger.Debug(j.ctx, "tg.sender", "send.success", attrs...)
	return nil
}

// runSafe turns a panic into an error; recover middleware does not cover
// worker goroutines.
func runSafe(run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telegram sender: panic: %v", r)
		}
	}()
	return run()
}

// attrs describes the job. Request identity comes from the logging context.
func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("op", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if j.key != 0 {
		attrs = append(attrs, slog.Int64("shard_key", j.key))
	}
	return attrs
}
