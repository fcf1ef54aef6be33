package notify

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type fakeMailer struct {
	mu    sync.Mutex
	fails int // first n sends fail
	sent  []orders.Email
	calls int
}

func (m *fakeMailer) Send(_ context.Context, e orders.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.fails {
		return errors.New("relay down")
	}
	m.sent = append(m.sent, e)
	return nil
}

type memDedup struct {
	seen     map[string]bool
	released []string
}

func (d *memDedup) First(_ context.Context, id string) (bool, error) {
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, id string) error {
	delete(d.seen, id)
	d.released = append(d.released, id)
	return nil
}

func event(t *testing.T, e orders.Email) []byte {
	t.Helper()
	env, err := NewEnvelope("test", e)
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return b
}

func newWorker(m Mailer, d Dedup, retries int) (*Worker, *[]time.Duration) {
	var waits []time.Duration
	return &Worker{
		Mailer:     m,
		Dedup:      d,
		MaxRetries: retries,
		Base:       time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}, &waits
}

var sampleMail = orders.Email{To: "buyer@example.com", Subject: "Order #1 confirmation", Message: "hi", OrderID: "1"}

func TestWorkerSendsOnce(t *testing.T) {
	m := &fakeMailer{}
	d := &memDedup{seen: map[string]bool{}}
	w, _ := newWorker(m, d, 3)

	body := event(t, sampleMail)
	require.NoError(t, w.Handle(context.Background(), body))
	require.NoError(t, w.Handle(context.Background(), body))

	require.Len(t, m.sent, 1)
	assert.Equal(t, sampleMail, m.sent[0])
}

func TestWorkerRetriesWithExponentialBackoff(t *testing.T) {
	m := &fakeMailer{fails: 2}
	w, waits := newWorker(m, nil, 3)

	require.NoError(t, w.Handle(context.Background(), event(t, sampleMail)))
	assert.Equal(t, 3, m.calls)
	assert.Len(t, m.sent, 1)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestWorkerGivesUpAndAcks(t *testing.T) {
	m := &fakeMailer{fails: 100}
	w, waits := newWorker(m, nil, 3)

	require.NoError(t, w.Handle(context.Background(), event(t, sampleMail)))
	assert.Equal(t, 4, m.calls)
	assert.Empty(t, m.sent)
	assert.Len(t, *waits, 3)
}

func TestWorkerShutdownMidRetryRequeues(t *testing.T) {
	m := &fakeMailer{fails: 100}
	d := &memDedup{seen: map[string]bool{}}
	w := &Worker{
		Mailer:     m,
		Dedup:      d,
		MaxRetries: 3,
		Base:       time.Hour,
		Sleep:      func(context.Context, time.Duration) error { return context.Canceled },
	}

	err := w.Handle(context.Background(), event(t, sampleMail))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, d.released, 1)
	assert.Empty(t, d.seen)
}

func TestWorkerDropsBadInput(t *testing.T) {
	m := &fakeMailer{}
	w, _ := newWorker(m, nil, 0)

	assert.NoError(t, w.Handle(context.Background(), []byte("{not json")))
	assert.NoError(t, w.Handle(context.Background(), event(t, orders.Email{Subject: "no one"})))

	other, _ := json.Marshal(orders.Envelope{EventType: "SomethingElse"})
	assert.NoError(t, w.Handle(context.Background(), other))
	assert.Zero(t, m.calls)
}

func TestDefaultSleepHonoursContext(t *testing.T) {
	w := &Worker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.sleep(ctx, time.Hour), context.Canceled)
}

type fakeProducer struct {
	key, value []byte
	headers    []kafkago.Header
	err        error
}

func (p *fakeProducer) TryPublish(key, value []byte, headers ...kafkago.Header) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

func TestKafkaQueueEnvelope(t *testing.T) {
	p := &fakeProducer{}
	q := &KafkaQueue{P: p, Producer: "marketplace-api"}
	require.NoError(t, q.Enqueue(context.Background(), sampleMail))

	assert.Equal(t, []byte("1"), p.key)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(p.value, &env))
	assert.Equal(t, orders.EventEmailRequested, env.EventType)
	assert.Equal(t, "marketplace-api", env.Producer)
	assert.Equal(t, "1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	var got orders.Email
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, sampleMail, got)
}

func TestKafkaQueuePropagatesBufferFull(t *testing.T) {
	q := &KafkaQueue{P: &fakeProducer{err: errors.New("full")}}
	assert.Error(t, q.Enqueue(context.Background(), sampleMail))
}

type fakeRabbit struct {
	key, id string
	body    []byte
}

func (r *fakeRabbit) Publish(ctx context.Context, key, id string, body []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	r.key, r.id, r.body = key, id, body
	return nil
}

func TestRabbitQueueSurvivesCanceledRequest(t *testing.T) {
	r := &fakeRabbit{}
	q := &RabbitQueue{C: r, Producer: "marketplace-api"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Enqueue(ctx, sampleMail))
	assert.Equal(t, orders.RoutingEmailRequested, r.key)
	assert.NotEmpty(t, r.id)
}
