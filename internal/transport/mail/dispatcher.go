package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDeliveryPending marks an outcome read before the delivery finished.
var ErrDeliveryPending = errors.New("mail delivery still pending")

// Outcome is the observable result of one delivery attempt.
type Outcome struct {
	To       string
	Subject  string
	Err      error
	Started  time.Time
	Duration time.Duration
}

func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Pending reports whether the delivery was still running when the outcome
// was read.
func (o Outcome) Pending() bool {
	return errors.Is(o.Err, ErrDeliveryPending)
}

type Observer func(Outcome)

// Task is a delivery running in the background.
type Task struct {
	to      string
	subject string
	done    chan struct{}
	outcome Outcome
}

// Wait blocks until the delivery finishes or ctx is done. In the latter case
// the delivery keeps running and the returned outcome is Pending.
func (t *Task) Wait(ctx context.Context) Outcome {
	select {
	case <-t.done:
		return t.outcome
	case <-ctx.Done():
		return Outcome{
			To:      t.to,
			Subject: t.subject,
			Err:     fmt.Errorf("%w: %w", ErrDeliveryPending, ctx.Err()),
		}
	}
}

// Dispatcher runs each message as its own task, detached from the request's
// cancellation so that a committed state change is always followed by an
// attempt to notify the customer.
type Dispatcher struct {
	sender    Sender
	logger    *zap.Logger
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	if sender == nil {
		sender = DisabledSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

func (d *Dispatcher) Observe(o Observer) {
	if o == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) *Task {
	task := &Task{to: msg.To, subject: msg.Subject, done: make(chan struct{})}
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		started := time.Now()
		err := d.sender.Send(sendCtx, msg)
		task.outcome = Outcome{
			To:       msg.To,
			Subject:  msg.Subject,
			Err:      err,
			Started:  started,
			Duration: time.Since(started),
		}
		close(task.done)
		d.publish(task.outcome)
	}()
	return task
}

// Send dispatches msg and waits for the outcome.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	return d.Dispatch(ctx, msg).Wait(ctx).Err
}

// Close waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) publish(o Outcome) {
	if o.Err != nil {
		d.logger.Warn("mail delivery failed",
			zap.String("subject", o.Subject),
			zap.Duration("duration", o.Duration),
			zap.Error(o.Err))
	} else {
		d.logger.Info("mail delivered",
			zap.String("subject", o.Subject),
			zap.Duration("duration", o.Duration))
	}

	d.mu.RLock()
	observers := append([]Observer(nil), d.observers...)
	d.mu.RUnlock()
	for _, observe := range observers {
		observe(o)
	}
}
