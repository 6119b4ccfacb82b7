// Package events publishes ledger changes to an AMQP exchange.
package events

import (
	"context"
	"sync"
)

// Publisher announces ledger events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishExpenseAdded(ctx context.Context, msg *ExpenseAdded) error
	Close() error
}

// Noop drops every event. Used when AMQP is not configured.
type Noop struct{}

func (Noop) PublishExpenseAdded(context.Context, *ExpenseAdded) error { return nil }
func (Noop) Close() error                                             { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*ExpenseAdded
	Err    error
}

func (r *Recorder) PublishExpenseAdded(_ context.Context, msg *ExpenseAdded) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, msg)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []*ExpenseAdded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ExpenseAdded(nil), r.events...)
}
