package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quantex/exchange-core/config"
	"github.com/quantex/exchange-core/pkg/engine"
	redis_wrapper "github.com/quantex/exchange-core/pkg/infra/redis"
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
	logger, err := logging.Init(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	go func() {
		_ = http.ListenAndServe("localhost:6060", nil)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	rdb, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		zap.S().Fatalw("init redis", "err", err)
	}

	producer := kafkabus.NewProducer(kafkabus.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	defer producer.Close() // nolint

	redisPub := engine.NewRedisPublisher(rdb)
	kafkaPub := engine.NewKafkaPublisher(producer, map[string]string{
		cfg.Engine.TradesChannel: cfg.Kafka.TradeTopic,
	})

	emitter := engine.NewTradeEmitter(engine.EmitterConfig{
		TradesChannel: cfg.Engine.TradesChannel,
		AcksChannel:   cfg.Engine.AcksChannel,
	}, redisPub, kafkaPub)
	emitter.Start(ctx)

	eng := engine.New(ctx, &engine.Config{
		StreamBuffer:    cfg.Engine.StreamBuffer,
		SnapshotDepth:   cfg.Engine.SnapshotDepth,
		DedupeCacheSize: cfg.Engine.DedupeCacheSize,
	}, emitter)

	broadcaster := engine.NewSnapshotBroadcaster(
		eng,
		cfg.Engine.SnapshotsChannel,
		time.Duration(cfg.Engine.SnapshotIntervalMS)*time.Millisecond,
		redisPub,
	)
	broadcaster.Start(ctx)

	ingester := engine.NewIngester(rdb, cfg.Engine.OrdersChannel, eng)
	go func() {
		if err := ingester.Run(ctx); err != nil && ctx.Err() == nil {
			zap.S().Errorw("ingester stopped", "err", err)
			cancel()
		}
	}()

	zap.S().Info("matching engine started")

	<-sigs
	zap.S().Info("shutting down...")
	cancel()
}
