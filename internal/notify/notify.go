// Package notify implements an in-memory confirmation dispatcher. Processed
// inventory emails enqueue a confirmation notice; a background broker hands
// them to a Sender.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shopmesh/shopmesh/internal/obs"
)

// Confirmation acknowledges one processed inventory email.
type Confirmation struct {
	To      string
	StoreID int64
	Items   int
}

// Sender delivers a confirmation to its recipient.
type Sender interface {
	Send(c Confirmation) error
}

// LogSender records the confirmation instead of delivering it. Outbound
// email is out of scope; this is the stand-in delivery path.
type LogSender struct{}

func (LogSender) Send(c Confirmation) error {
	obs.Logger.Info("would send confirmation",
		zap.String("to", c.To),
		zap.Int64("store_id", c.StoreID),
		zap.Int("items_updated", c.Items),
	)
	return nil
}

// Dispatcher is a buffered confirmation queue with a background broker.
type Dispatcher struct {
	mu           sync.Mutex
	backlog      []Confirmation
	notify       chan struct{}
	sender       Sender
	shuttingDown atomic.Bool

	enqueued atomic.Uint64
	sent     atomic.Uint64
}

// New creates a Dispatcher delivering through the given sender. buffer is
// the initial backlog capacity; the backlog still grows past it under load.
func New(sender Sender, buffer int) *Dispatcher {
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		backlog: make([]Confirmation, 0, buffer),
		notify:  make(chan struct{}, 1),
		sender:  sender,
	}
}

// Start runs the broker loop until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context, highWatermark int) {
	go d.broker(ctx, highWatermark)
}

func (d *Dispatcher) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		d.flushOnce()
		if highWatermark > 0 {
			if sz := d.BacklogSize(); sz > highWatermark {
				obs.Logger.Warn("confirmation backlog exceeds high watermark",
					zap.Int("backlog_size", sz),
					zap.Int("high_watermark", highWatermark),
				)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains the backlog through the sender.
func (d *Dispatcher) flushOnce() {
	for {
		d.mu.Lock()
		if len(d.backlog) == 0 {
			d.mu.Unlock()
			return
		}
		c := d.backlog[0]
		d.backlog = d.backlog[1:]
		d.mu.Unlock()

		if err := d.sender.Send(c); err != nil {
			obs.Logger.Error("confirmation send failed", zap.String("to", c.To), zap.Error(err))
		}
		d.sent.Add(1)
	}
}

// ConfirmProcessed enqueues a confirmation notice. Returns false when the
// dispatcher is shutting down.
func (d *Dispatcher) ConfirmProcessed(to string, storeID int64, items int) bool {
	if d.shuttingDown.Load() {
		return false
	}
	d.enqueued.Add(1)
	d.mu.Lock()
	d.backlog = append(d.backlog, Confirmation{To: to, StoreID: storeID, Items: items})
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return true
}

// BacklogSize returns the number of queued-but-unsent confirmations.
func (d *Dispatcher) BacklogSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// Metrics returns counters for observability.
func (d *Dispatcher) Metrics() (enqueued, sent uint64, backlog int) {
	return d.enqueued.Load(), d.sent.Load(), d.BacklogSize()
}

// CloseIntake disallows future enqueues.
func (d *Dispatcher) CloseIntake() { d.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (d *Dispatcher) IsShuttingDown() bool { return d.shuttingDown.Load() }

// DrainUntil blocks until every enqueued confirmation is sent or the
// context is done.
func (d *Dispatcher) DrainUntil(ctx context.Context) bool {
	for {
		enq, sent, backlog := d.Metrics()
		if backlog == 0 && enq == sent {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
