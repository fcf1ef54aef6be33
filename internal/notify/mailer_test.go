package notify

import (
	"bytes"
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"sync"
	"testing"
	"time"
)

func TestNewMessageEncodesHeaders(t *testing.T) {
	msg, err := newMessage("shop@example.com", orders.Email{
		To:      "buyer@example.com",
		Subject: "Заказ №42 подтверждён",
		Message: "line one\nline two",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "From: <shop@example.com>")
	assert.Contains(t, out, "To: <buyer@example.com>")
	assert.Contains(t, out, "Subject: =?UTF-8?")
	assert.NotContains(t, out, "Заказ")
	assert.Contains(t, out, "line one")
}

func TestNewMessageRejectsBadAddress(t *testing.T) {
	_, err := newMessage("shop@example.com", orders.Email{To: "not an address", Subject: "S"})
	assert.Error(t, err)
}

// stalledRelay accepts connections and never sends a greeting.
func stalledRelay(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestSMTPMailerHonoursContext(t *testing.T) {
	m := &SMTPMailer{Addr: stalledRelay(t), From: "shop@example.com", Timeout: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- m.Send(ctx, orders.Email{To: "buyer@example.com", Subject: "S", Message: "m"}) }()

	select {
	case err := <-errc:
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after its context expired")
	}
}

func TestSMTPMailerTimeout(t *testing.T) {
	m := &SMTPMailer{Addr: stalledRelay(t), From: "shop@example.com", Timeout: 100 * time.Millisecond}

	errc := make(chan error, 1)
	go func() {
		errc <- m.Send(context.Background(), orders.Email{To: "buyer@example.com", Subject: "S", Message: "m"})
	}()

	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not return after the relay timeout")
	}
}

func TestSMTPMailerBadAddr(t *testing.T) {
	m := &SMTPMailer{Addr: "no-port", From: "shop@example.com"}
	assert.Error(t, m.Send(context.Background(), orders.Email{To: "buyer@example.com"}))
}
