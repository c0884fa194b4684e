package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errQueueFull    = errors.New("logstash: queue full")
	errFlushTimeout = errors.New("logstash: flush timed out")
)

// LogstashWriter ships log lines to a Logstash TCP input from a background
// goroutine. Write only enqueues, so a slow or missing Logstash never stalls
// a request; lines that cannot be queued or delivered are counted and dropped.
type LogstashWriter struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration
	flushTimeout  time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan logstashEntry
	done    chan struct{}
	dropped atomic.Uint64
}

// logstashEntry is either a line to send or a flush marker.
type logstashEntry struct {
	line  []byte
	flush chan struct{}
}

type Option func(*LogstashWriter)

// WithDialTimeout defaults to 2s.
func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.dialTimeout = d }
}

// WithWriteTimeout defaults to 1s.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.writeTimeout = d }
}

// WithRetryInterval sets how long lines are dropped after a failed dial or
// write before reconnecting. Defaults to 5s.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) { w.retryInterval = d }
}

// WithQueueSize bounds the number of lines waiting to be shipped.
func WithQueueSize(n int) Option {
	return func(w *LogstashWriter) {
		if n > 0 {
			w.queue = make(chan logstashEntry, n)
		}
	}
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}

	w := &LogstashWriter{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		flushTimeout:  2 * time.Second,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.queue == nil {
		w.queue = make(chan logstashEntry, 1024)
	}

	go w.run()
	return w, nil
}

// Write queues one newline-terminated copy of p. It never blocks.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := make([]byte, len(p), len(p)+1)
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	switch err := w.enqueue(logstashEntry{line: line}, 0); {
	case errors.Is(err, io.ErrClosedPipe):
		return 0, err
	case err != nil:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Sync waits until every line queued before the call has been handled.
func (w *LogstashWriter) Sync() error {
	flushed := make(chan struct{})
	if err := w.enqueue(logstashEntry{flush: flushed}, w.flushTimeout); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return errFlushTimeout
	}

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()
	select {
	case <-flushed:
		return nil
	case <-timer.C:
		return errFlushTimeout
	}
}

// Dropped reports how many lines never reached Logstash.
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops accepting lines, ships what is queued and closes the connection.
func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return nil
}

func (w *LogstashWriter) enqueue(e logstashEntry, wait time.Duration) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return io.ErrClosedPipe
	}

	if wait <= 0 {
		select {
		case w.queue <- e:
			return nil
		default:
			return errQueueFull
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case w.queue <- e:
		return nil
	case <-timer.C:
		return errQueueFull
	}
}

// run owns the TCP connection.
func (w *LogstashWriter) run() {
	defer close(w.done)

	var (
		conn      net.Conn
		nextRetry time.Time
	)
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for e := range w.queue {
		if e.flush != nil {
			close(e.flush)
			continue
		}

		if conn == nil {
			if time.Now().Before(nextRetry) {
				w.dropped.Add(1)
				continue
			}
			c, err := net.DialTimeout("tcp", w.addr, w.dialTimeout)
			if err != nil {
				nextRetry = time.Now().Add(w.retryInterval)
				w.dropped.Add(1)
				continue
			}
			conn = c
		}

		if w.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
		}
		if _, err := conn.Write(e.line); err != nil {
			_ = conn.Close()
			conn = nil
			nextRetry = time.Now().Add(w.retryInterval)
			w.dropped.Add(1)
		}
	}
}
