package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
)

type fakeChannel struct {
	mu        sync.Mutex
	exchanges []string
	published []amqp091.Publishing
	keys      []string
	failNext  error
	closed    bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind != "topic" || !durable {
		return errors.New("unexpected exchange settings")
	}
	c.exchanges = append(c.exchanges, name)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return err
	}
	c.keys = append(c.keys, exchange+"/"+key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type fakeConn struct{ ch *fakeChannel }

func (c *fakeConn) Channel() (channel, error) { return c.ch, nil }
func (c *fakeConn) Close() error             { return nil }

type fakeBroker struct {
	mu       sync.Mutex
	dials    int
	channels []*fakeChannel
	down     bool
}

func (b *fakeBroker) dial(string) (connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	if b.down {
		return nil, errors.New("connection refused")
	}
	ch := &fakeChannel{}
	b.channels = append(b.channels, ch)
	return &fakeConn{ch: ch}, nil
}

func sampleEvent() *ExpenseAdded {
	return NewExpenseAdded("sess-1", core.NewDate(2025, 2, 3), core.CategoryFood, decimal.RequireFromString("12.5"))
}

func TestPublisher_PublishesPersistentJSON(t *testing.T) {
	b := &fakeBroker{}
	p, err := newAMQPPublisher(context.Background(), "amqp://x", "ahorro", "expense.added", nil, b.dial)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.PublishExpenseAdded(context.Background(), sampleEvent()))

	ch := b.channels[0]
	assert.Equal(t, []string{"ahorro"}, ch.exchanges)
	assert.Equal(t, []string{"ahorro/expense.added"}, ch.keys)
	require.Len(t, ch.published, 1)
	assert.Equal(t, amqp091.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	msg, err := ExpenseAddedFromJSON(ch.published[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", msg.SessionID)
	assert.Equal(t, core.NewDate(2025, 2, 3), msg.Date)
	assert.True(t, msg.Amount.Equal(decimal.RequireFromString("12.5")))
}

func TestPublisher_ReconnectsAfterClosedChannel(t *testing.T) {
	b := &fakeBroker{}
	p, err := newAMQPPublisher(context.Background(), "amqp://x", "ahorro", "k", nil, b.dial)
	require.NoError(t, err)
	p.reconnect.BaseDelay = time.Millisecond
	p.reconnect.MaxDelay = time.Millisecond
	defer p.Close()

	b.channels[0].failNext = amqp091.ErrClosed
	require.NoError(t, p.PublishExpenseAdded(context.Background(), sampleEvent()))

	assert.Equal(t, 2, b.dials)
	assert.True(t, b.channels[0].closed)
	assert.Len(t, b.channels[1].published, 1)
}

func TestPublisher_NonConnectionErrorIsReturned(t *testing.T) {
	b := &fakeBroker{}
	p, err := newAMQPPublisher(context.Background(), "amqp://x", "ahorro", "k", nil, b.dial)
	require.NoError(t, err)
	defer p.Close()

	b.channels[0].failNext = errors.New("PRECONDITION_FAILED")
	err = p.PublishExpenseAdded(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Equal(t, 1, b.dials)
}

func TestPublisher_DialFailure(t *testing.T) {
	b := &fakeBroker{down: true}
	_, err := newAMQPPublisher(context.Background(), "amqp://x", "ahorro", "k", nil, b.dial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial AMQP")
}

func TestPublisher_ClosedRefuses(t *testing.T) {
	b := &fakeBroker{}
	p, err := newAMQPPublisher(context.Background(), "amqp://x", "ahorro", "k", nil, b.dial)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.PublishExpenseAdded(context.Background(), sampleEvent()), errClosed)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"connection refused", errors.New("dial AMQP: connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.PublishExpenseAdded(context.Background(), sampleEvent()))
	assert.Len(t, r.Events(), 1)

	r.Err = errors.New("down")
	assert.Error(t, r.PublishExpenseAdded(context.Background(), sampleEvent()))
	assert.NoError(t, Noop{}.PublishExpenseAdded(context.Background(), sampleEvent()))
}
