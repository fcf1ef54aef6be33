package kafka

import (
	"context"
	"errors"
	"github.com/segmentio/kafka-go"
	"log"
	"sync"
	"time"
)

// ErrBufferFull is returned by TryPublish when the inbox has no room.
var ErrBufferFull = errors.New("kafka: producer buffer full")

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("kafka: producer closed")

// Producer buffers messages in memory and writes them from one goroutine.
// Writes are asynchronous; failures are logged from the completion callback.
type Producer struct {
	w      *kafka.Writer
	inbox  chan kafka.Message
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					log.Printf("[kafka] write %d message(s) to %s failed: %v", len(msgs), topic, err)
				}
			},
		},
		inbox: make(chan kafka.Message, buf),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start runs the write loop until ctx is done or Close is called. Whatever
// is still buffered is flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.Close()
				p.shutdown()
				return
			case <-p.stop:
				p.shutdown()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				log.Printf("[kafka] close writer: %v", err)
			}
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("[kafka] write key=%s: %v", m.Key, err)
	}
}

// Publish blocks until the message is buffered or the producer stops.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- message(key, value, headers):
		return nil
	case <-p.stop:
		return ErrClosed
	}
}

// TryPublish buffers the message or fails immediately.
func (p *Producer) TryPublish(key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- message(key, value, headers):
		return nil
	default:
		return ErrBufferFull
	}
}

func message(key, value []byte, headers []kafka.Header) kafka.Message {
	return kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
}

// Close asks the write loop to flush and exit. Safe to call more than once.
func (p *Producer) Close() { p.once.Do(func() { close(p.stop) }) }

// WaitClosed blocks until the write loop has exited.
func (p *Producer) WaitClosed() { <-p.done }
