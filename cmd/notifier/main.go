package main

import (
	"context"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/rabbit"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = &notify.SMTPMailer{
			Addr:     cfg.SMTPAddr,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.SMTPTimeout,
		}
	}
	w := &notify.Worker{
		Mailer:     mailer,
		Dedup:      &redisx.Dedup{RDB: rdb, Service: cfg.NotifyGroup},
		MaxRetries: cfg.MailMaxRetries,
		Base:       cfg.MailRetryBase,
	}

	g, gctx := errgroup.WithContext(ctx)
	switch cfg.NotifyTransport {
	case "rabbitmq":
		rc, err := rabbit.Dial(rabbit.Config{URL: cfg.RabbitURL, Exchange: cfg.RabbitExchange})
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer rc.Close()
		queue := cfg.NotifyGroup + "." + orders.RoutingEmailRequested
		g.Go(func() error {
			return rc.Consume(gctx, queue, orders.RoutingEmailRequested, cfg.NotifyWorkers, w.Handle)
		})
	default:
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, orders.TopicEmailRequested, cfg.NotifyWorkers)
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d",
			cfg.NotifyGroup, orders.TopicEmailRequested, cfg.NotifyWorkers)
		g.Go(func() error {
			return cons.Start(gctx, func(ctx context.Context, m kafka.Message) error {
				return w.Handle(ctx, m.Value)
			})
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("notifier exit: %v", err)
	}
	log.Println("notifier stopped")
}
