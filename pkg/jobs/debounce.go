package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Debouncer coalesces bursts of triggers into one job enqueued after a quiet period.
type Debouncer struct {
	queue   *Queue
	jobType string
	delay   time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewDebouncer wires a debouncer in front of a queue.
func NewDebouncer(queue *Queue, jobType string, delay time.Duration, logger *zap.Logger) *Debouncer {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debouncer{queue: queue, jobType: jobType, delay: delay, logger: logger}
}

// Trigger (re)starts the quiet-period timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Pending reports whether a trigger is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush enqueues a pending job immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	pending := d.pending
	d.mu.Unlock()
	if pending {
		d.fire()
	}
}

// Stop cancels a pending trigger without enqueueing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	job := Job{ID: uuid.NewString(), Type: d.jobType}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Sugar().Errorw("debounced enqueue failed", "type", d.jobType, "error", err)
	}
}
