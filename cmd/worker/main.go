package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/quantex/exchange-core/config"
	"github.com/quantex/exchange-core/pkg/engine/repo"
	"github.com/quantex/exchange-core/pkg/engine/worker"
	postgres_wrapper "github.com/quantex/exchange-core/pkg/infra/postgres"
	"github.com/quantex/exchange-core/pkg/kafkabus"
	"github.com/quantex/exchange-core/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	logger, err := logging.Init(cfg.LogLevel, cfg.ServiceName+"-worker")
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.TradesDB)
	sqlRepo := repo.NewRepo(db)

	cg, err := kafkabus.NewConsumerGroup(kafkabus.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.GroupID,
		Topic:    cfg.Kafka.TradeTopic,
		DLQTopic: cfg.Kafka.DLQTopic,
	})
	if err != nil {
		zap.S().Fatalw("init kafka consumer", "err", err)
	}
	defer cg.Close() // nolint

	w := worker.NewWorker(sqlRepo)
	go func() {
		if err := w.Run(ctx, cg); err != nil && ctx.Err() == nil {
			zap.S().Errorw("trade consumer stopped", "err", err)
			cancel()
		}
	}()

	zap.S().Info("trade persistence worker started")

	<-sigs
	zap.S().Info("shutting down...")
	cancel()
}
