package rabbit

import (
	"context"
	"errors"
	"fmt"
	amqp "github.com/rabbitmq/amqp091-go"
	"log"
	"sync"
	"time"
)

type Config struct {
	URL      string
	Exchange string
}

// Client wraps one connection and a publishing channel on a durable topic exchange.
type Client struct {
	conn   *amqp.Connection
	pubMu  sync.Mutex
	pub    *amqp.Channel
	Config Config
}

// Dial connects with retries and declares the exchange.
func Dial(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("rabbit: exchange name cannot be empty")
	}
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		log.Printf("[rabbit] connect failed, retrying in %v: %v", wait, err)
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("rabbit: connect after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbit: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbit: declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Client{conn: conn, pub: ch, Config: cfg}, nil
}

func (c *Client) Close() error {
	if c.pub != nil {
		if err := c.pub.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publish sends a persistent JSON message with the given routing key.
func (c *Client) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	err := c.pub.PublishWithContext(ctx, c.Config.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbit: publish to %s/%s: %w", c.Config.Exchange, routingKey, err)
	}
	return nil
}

// Handler returns nil when the delivery may be acked. An error requeues it.
type Handler func(ctx context.Context, body []byte) error

// Consume declares and binds a durable queue and runs workers handlers until
// ctx is done or the channel closes.
func (c *Client) Consume(ctx context.Context, queue, routingKey string, workers int, h Handler) error {
	if workers <= 0 {
		workers = 1
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbit: open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbit: declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, routingKey, c.Config.Exchange, false, nil); err != nil {
		return fmt.Errorf("rabbit: bind %s to %s: %w", q.Name, c.Config.Exchange, err)
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		return fmt.Errorf("rabbit: set qos: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbit: consume %s: %w", q.Name, err)
	}
	log.Printf("[rabbit] consuming %s (key %s) with %d worker(s)", q.Name, routingKey, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						return
					}
					if err := h(ctx, d.Body); err != nil {
						log.Printf("[rabbit] handle %s: %v", d.MessageId, err)
						_ = d.Nack(false, true)
						continue
					}
					_ = d.Ack(false)
				}
			}
		}()
	}
	wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return errors.New("rabbit: delivery channel closed")
}
