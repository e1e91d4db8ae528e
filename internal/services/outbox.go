package services

import (
	"sync"
	"time"

	applog "swiftcart/internal/log"
)

const outboxAttempts = 3

type followup struct {
	action  string
	orderID string
	run     func() error
}

// Outbox carries the post-commit follow-up steps (reservation release,
// coupon increment) that are deliberately not part of the order-persist
// transaction. The worker retries each step a few times and logs a
// reconciliation entry when it gives up, so partial failures are
// observable instead of silently swallowed.
type Outbox struct {
	ch chan followup
	wg sync.WaitGroup
}

func NewOutbox() *Outbox {
	o := &Outbox{ch: make(chan followup, 256)}
	go o.worker()
	return o
}

func (o *Outbox) Enqueue(action, orderID string, run func() error) {
	o.wg.Add(1)
	select {
	case o.ch <- followup{action: action, orderID: orderID, run: run}:
	default:
		// Queue full: run inline rather than drop the step.
		o.process(followup{action: action, orderID: orderID, run: run})
	}
}

// Flush blocks until every enqueued follow-up has been processed.
func (o *Outbox) Flush() { o.wg.Wait() }

func (o *Outbox) worker() {
	for f := range o.ch {
		o.process(f)
	}
}

func (o *Outbox) process(f followup) {
	defer o.wg.Done()
	var err error
	for i := 0; i < outboxAttempts; i++ {
		if err = f.run(); err == nil {
			return
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	// Left for out-of-band reconciliation; the order itself stays valid.
	applog.BgError("followup.failed", err, map[string]any{"action": f.action, "order_id": f.orderID})
}
