package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ariefcatur/go-hotel-console/internal/auth"
	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	"github.com/ariefcatur/go-hotel-console/internal/config"
	"github.com/ariefcatur/go-hotel-console/internal/console"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/docstore/memory"
	"github.com/ariefcatur/go-hotel-console/internal/docstore/pgstore"
	"github.com/ariefcatur/go-hotel-console/internal/gateway"
	"github.com/ariefcatur/go-hotel-console/internal/httpx"
	kafkax "github.com/ariefcatur/go-hotel-console/internal/kafka"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
	"github.com/ariefcatur/go-hotel-console/internal/postgres"
	"github.com/ariefcatur/go-hotel-console/internal/redisx"
	"github.com/ariefcatur/go-hotel-console/internal/subscriptions"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.ServiceName)
	log := logging.For("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store docstore.Store
		rdb   *redis.Client
		prod  *kafkax.Producer
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := memory.New()
		defer mem.Close()
		store = mem
		log.Warn("using in-memory store: data is lost on exit")

	case config.StorePostgres:
		// DB
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("db connect")
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.WithError(err).Fatal("db schema")
		}

		// change feed
		switch cfg.FeedDriver {
		case config.FeedLocal:
			feed := changefeed.NewLocalFeed()
			store = pgstore.New(db, feed, feed)
		default:
			rdb, err = redisx.Connect(ctx, cfg.RedisAddr)
			if err != nil {
				log.WithError(err).Fatal("redis connect")
			}
			defer rdb.Close()
			prod = kafkax.NewProducer(cfg.KafkaBrokers, changefeed.TopicDocumentsChanged, 1024)
			prod.Start(ctx)
			store = pgstore.New(db,
				changefeed.NewKafkaPublisher(prod, cfg.ServiceName),
				changefeed.NewRedisFeed(rdb))
		}

	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	reg := subscriptions.NewRegistry(store)
	hub := console.NewHub(reg)
	gw := gateway.New(store, gateway.WithPricer(hub))

	// day rollover moves "today" under every open dashboard
	c := cron.New(cron.WithLocation(time.Local))
	if _, err := c.AddFunc(cfg.RefreshSpec, hub.Refresh); err != nil {
		log.WithError(err).Fatalf("schedule dashboard refresh %q", cfg.RefreshSpec)
	}
	c.Start()

	router := httpx.NewRouter(cfg.AllowedOrigins)
	h := &httpx.ConsoleHandler{Hub: hub, Gateway: gw}
	if rdb != nil {
		h.Cache = &redisx.DashboardCache{RDB: rdb, TTL: cfg.DashboardTTL}
	}
	h.Register(router, auth.Middleware([]byte(cfg.JWTSecret)))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Infof("HTTP listening at %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	<-c.Stop().Done()
	_ = hub.Close()
	_ = reg.Close()
	if prod != nil {
		prod.Close() // close inbox -> flush & close writer
		cancel()
		prod.WaitClosed()
	}
}
