package notify

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/wneessen/go-mail"
	"log"
	"net"
	"strconv"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, e orders.Email) error
}

const defaultSMTPTimeout = 30 * time.Second

// SMTPMailer sends plain-text mail through one relay. A send is bounded by
// both ctx and Timeout, including the wait for the relay's greeting.
type SMTPMailer struct {
	Addr     string // host:port
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

func (m *SMTPMailer) Send(ctx context.Context, e orders.Email) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := newMessage(m.From, e)
	if err != nil {
		return err
	}
	client, err := m.client(timeout)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", e.To, err)
	}
	return nil
}

func (m *SMTPMailer) client(timeout time.Duration) (*mail.Client, error) {
	host, p, err := net.SplitHostPort(m.Addr)
	if err != nil {
		return nil, fmt.Errorf("smtp addr %q: %w", m.Addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", p, err)
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dialBounded),
	}
	if m.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.User),
			mail.WithPassword(m.Password),
		)
	}
	c, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

// dialBounded ties the connection to ctx: the deadline covers every read and
// write, and cancellation closes the socket so a silent relay cannot hold
// the send past ctx.
func dialBounded(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			conn.Close()
			return nil, err
		}
	}
	context.AfterFunc(ctx, func() { conn.Close() })
	return conn, nil
}

// newMessage builds the outgoing message; headers are RFC 2047 encoded as
// needed so non-ASCII subjects and names survive the relay.
func newMessage(from string, e orders.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", from, err)
	}
	if err := msg.To(e.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", e.To, err)
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.Message)
	return msg, nil
}

// LogMailer only logs. Used when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, e orders.Email) error {
	log.Printf("[mail] to=%s subject=%q\n%s", e.To, e.Subject, e.Message)
	return nil
}
