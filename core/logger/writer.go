package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

type writeOp struct {
	line   []byte
	errors bool
	ack    chan error
}

// asyncWriter serializes log lines onto its sinks from a single goroutine.
// Sinks are flushed whenever the queue drains. Error lines are mirrored to
// errSinks as well.
type asyncWriter struct {
	ops  chan writeOp
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	sinks    []*bufio.Writer
	errSinks []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(outs, errOuts []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		ops:      make(chan writeOp, 256),
		done:     make(chan struct{}),
		sinks:    buffered(outs, bufSize),
		errSinks: buffered(errOuts, bufSize),
	}
	go w.run()
	return w
}

func buffered(outs []io.Writer, size int) []*bufio.Writer {
	res := make([]*bufio.Writer, 0, len(outs))
	for _, o := range outs {
		if o != nil {
			res = append(res, bufio.NewWriterSize(o, size))
		}
	}
	return res
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.flush()
			continue
		}
		w.fail(w.write(op.line, op.errors))
		if len(w.ops) == 0 {
			w.fail(w.flush())
		}
	}
	w.fail(w.flush())
}

// Write queues a copy of p. isError routes the line to the error sinks too.
func (w *asyncWriter) Write(p []byte, isError bool) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- writeOp{line: append([]byte(nil), p...), errors: isError}
	return nil
}

// Flush blocks until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.firstErr()
	}
	ack := make(chan error, 1)
	w.ops <- writeOp{ack: ack}
	w.mu.RUnlock()
	if err := <-ack; err != nil {
		return err
	}
	return w.firstErr()
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) write(p []byte, isError bool) error {
	var errs []error
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	if isError {
		for _, s := range w.errSinks {
			if _, err := s.Write(p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, group := range [][]*bufio.Writer{w.sinks, w.errSinks} {
		for _, s := range group {
			if err := s.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
