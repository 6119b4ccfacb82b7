package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/retry"
)

const publishTimeout = 5 * time.Second

var errClosed = errors.New("publisher closed")

type (
	connection interface {
		Channel() (channel, error)
		Close() error
	}

	channel interface {
		ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
		PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
		Close() error
	}

	dialFunc func(url string) (connection, error)
)

type amqpConn struct{ *amqp091.Connection }

func (c amqpConn) Channel() (channel, error) { return c.Connection.Channel() }

func dialAMQP(url string) (connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// AMQPPublisher sends persistent JSON messages to a durable topic exchange.
// A broken connection is re-dialled on the next publish.
type AMQPPublisher struct {
	mu         sync.Mutex
	url        string
	exchange   string
	routingKey string
	dial       dialFunc
	conn       connection
	ch         channel
	closed     bool
	reconnect  retry.Policy
	logger     *log.Logger
}

// NewAMQPPublisher connects and declares the exchange.
func NewAMQPPublisher(ctx context.Context, url, exchange, routingKey string, logger *log.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(ctx, url, exchange, routingKey, logger, dialAMQP)
}

func newAMQPPublisher(ctx context.Context, url, exchange, routingKey string, logger *log.Logger, dial dialFunc) (*AMQPPublisher, error) {
	if logger == nil {
		logger = log.Discard()
	}
	p := &AMQPPublisher{
		url:        url,
		exchange:   exchange,
		routingKey: routingKey,
		dial:       dial,
		reconnect: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Retryable:   isConnectionError,
		},
		logger: logger.WithComponent(log.ComponentEvents),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "Connected to AMQP", "exchange", exchange, "routing_key", routingKey)
	return p, nil
}

// connect must be called with mu held.
func (p *AMQPPublisher) connect() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

// dropConnection must be called with mu held.
func (p *AMQPPublisher) dropConnection() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) PublishExpenseAdded(ctx context.Context, msg *ExpenseAdded) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    msg.Timestamp,
		Body:         body,
	}

	return retry.Do(ctx, p.reconnect, func(ctx context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			return errClosed
		}
		if p.ch == nil {
			if err := p.connect(); err != nil {
				return err
			}
			p.logger.InfoContext(ctx, "Reconnected to AMQP", "exchange", p.exchange)
		}

		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := p.ch.PublishWithContext(pctx, p.exchange, p.routingKey, false, false, publishing); err != nil {
			if isConnectionError(err) {
				p.dropConnection()
			}
			return fmt.Errorf("publish message: %w", err)
		}

		p.logger.DebugContext(ctx, "Published expense event",
			log.FieldSessionID, msg.SessionID,
			log.FieldDate, msg.Date.String(),
			log.FieldCategory, msg.Category.String())
		return nil
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var err error
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	var aerr *amqp091.Error
	if errors.As(err, &aerr) && (aerr.Code == amqp091.ChannelError || aerr.Code == amqp091.ConnectionForced) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "channel/connection is not open", "eof", "broken pipe", "use of closed network connection", "dial amqp"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
