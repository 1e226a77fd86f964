package offline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rxsync/pkg/errors"
	"rxsync/pkg/events"
)

// Operation is a deferred mutating call against the remote API
type Operation func(ctx context.Context) (interface{}, error)

// Pending is the deferred result of a queued operation. It settles exactly
// once: when the operation runs (immediately while Online, or during
// replay), or with a shutdown error when the queue closes first.
type Pending struct {
	ID         string
	EnqueuedAt time.Time

	done  chan struct{}
	value interface{}
	err   error
}

// Result blocks until the operation settles or ctx ends
func (p *Pending) Result(ctx context.Context) (interface{}, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done exposes the settlement signal for select loops
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

func (p *Pending) settle(value interface{}, err error) {
	p.value = value
	p.err = err
	close(p.done)
}

type queuedOp struct {
	pending *Pending
	op      Operation
}

// Queue defers mutating operations while the monitor reports Offline and
// replays them strictly in enqueue order on reconnect. A failed replayed
// operation settles its own Pending and never blocks the ones behind it.
type Queue struct {
	monitor *Monitor
	logger  *zap.Logger
	events  *events.Registry

	mu       sync.Mutex
	ops      []*queuedOp
	draining bool
	closed   bool

	sub *events.Subscription
}

// NewQueue creates a queue wired to the monitor's connectivity events
func NewQueue(monitor *Monitor, registry *events.Registry, logger *zap.Logger) *Queue {
	q := &Queue{
		monitor: monitor,
		logger:  logger,
		events:  registry,
	}

	q.sub = registry.Subscribe(events.EventConnectivityChanged, func(payload interface{}) {
		if online, ok := payload.(bool); ok && online {
			go q.drain()
		}
	})

	return q
}

// ExecuteWhenOnline runs op immediately when Online, or appends it to the
// replay queue when Offline. The returned Pending is already settled in
// the immediate case.
func (q *Queue) ExecuteWhenOnline(ctx context.Context, op Operation) *Pending {
	pending := &Pending{
		ID:         uuid.New().String(),
		EnqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		pending.settle(nil, errors.NewShutdownError("offline queue"))
		return pending
	}
	// Anything already queued must replay first, so a new operation joins
	// the queue even when the monitor just flipped Online.
	deferred := !q.monitor.Online() || len(q.ops) > 0 || q.draining
	if deferred {
		q.ops = append(q.ops, &queuedOp{pending: pending, op: op})
	}
	q.mu.Unlock()

	if deferred {
		q.logger.Debug("operation deferred until reconnect", zap.String("id", pending.ID))
		return pending
	}

	value, err := op(ctx)
	pending.settle(value, err)
	return pending
}

// Len returns the number of operations waiting for replay
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close detaches from connectivity events and settles every queued
// operation with a shutdown error so no caller is left hanging.
func (q *Queue) Close() {
	q.sub.Unsubscribe()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	remaining := q.ops
	q.ops = nil
	q.mu.Unlock()

	for _, queued := range remaining {
		queued.pending.settle(nil, errors.NewShutdownError("offline queue"))
	}
}

// drain replays queued operations strictly in FIFO order, awaiting each to
// completion before starting the next. Replay pauses when connectivity
// drops again and resumes on the next Online transition.
func (q *Queue) drain() {
	q.mu.Lock()
	if q.draining || q.closed {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.events.Publish(events.EventReplayStarted, q.Len())
	replayed := 0

	for {
		q.mu.Lock()
		if q.closed || len(q.ops) == 0 || !q.monitor.Online() {
			q.draining = false
			q.mu.Unlock()
			break
		}
		next := q.ops[0]
		q.ops = q.ops[1:]
		q.mu.Unlock()

		value, err := next.op(context.Background())
		if err != nil {
			q.logger.Warn("queued operation failed during replay",
				zap.String("id", next.pending.ID),
				zap.Error(err),
			)
		}
		next.pending.settle(value, err)
		replayed++
	}

	q.events.Publish(events.EventReplayFinished, replayed)
}
