package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	"github.com/ariefcatur/go-hotel-console/internal/config"
	kafkax "github.com/ariefcatur/go-hotel-console/internal/kafka"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
	"github.com/ariefcatur/go-hotel-console/internal/redisx"
	"github.com/ariefcatur/go-hotel-console/internal/relay"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.ServiceName + "-relay")
	log := logging.For("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.WithError(err).Fatal("redis connect")
	}
	defer rdb.Close()

	svc := relay.NewService(
		&redisx.Deduper{RDB: rdb, Service: cfg.RelayGroup},
		&redisx.Broadcaster{RDB: rdb},
	)

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RelayGroup, changefeed.TopicDocumentsChanged, cfg.RelayWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Infof("relay consumer started: group=%s topic=%s workers=%d",
			cfg.RelayGroup, changefeed.TopicDocumentsChanged, cfg.RelayWorkers)
		if err := cons.Start(ctx, svc.HandleDocumentChanged); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down relay...")
	cancel()
	<-done
}
