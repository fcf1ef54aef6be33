package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/notify"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/rabbit"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := &orders.Service{}

	// Store
	switch cfg.StoreDriver {
	case "memory":
		st := memstore.New()
		if cfg.SeedFile != "" {
			seed, err := memstore.LoadSeed(cfg.SeedFile)
			if err != nil {
				log.Fatalf("seed: %v", err)
			}
			st.Apply(seed)
		}
		svc.Store = st
		log.Printf("using in-memory store")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.ServiceName)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		svc.Store = &postgres.Store{DB: db}
	}

	// Redis status cache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Cache = &redisx.StatusCache{RDB: rdb}
	}

	// Email queue
	var prod *kafkax.Producer
	switch cfg.NotifyTransport {
	case "rabbitmq":
		rc, err := rabbit.Dial(rabbit.Config{URL: cfg.RabbitURL, Exchange: cfg.RabbitExchange})
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer rc.Close()
		svc.Notifier = &notify.RabbitQueue{C: rc, Producer: cfg.ServiceName}
	default:
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicEmailRequested, 1024)
		// Started detached from ctx so requests still draining can enqueue.
		prod.Start(context.Background())
		svc.Notifier = &notify.KafkaQueue{P: prod, Producer: cfg.ServiceName}
	}

	router := httpx.NewRouter()
	(&httpx.Handler{Svc: svc, JWTSecret: cfg.JWTSecret}).Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Printf("api exit: %v", err)
	}

	if prod != nil {
		prod.Close() // flush buffered emails
		prod.WaitClosed()
	}
}
