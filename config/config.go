package config

import (
	"os"

	postgres_wrapper "github.com/quantex/exchange-core/pkg/infra/postgres"
	redis_wrapper "github.com/quantex/exchange-core/pkg/infra/redis"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	SnapshotIntervalMS int    `yaml:"snapshot_interval_ms"`
	SnapshotDepth      int    `yaml:"snapshot_depth"`
	StreamBuffer       int    `yaml:"stream_buffer"`
	DedupeCacheSize    int    `yaml:"dedupe_cache_size"`
	OrdersChannel      string `yaml:"orders_channel"`
	TradesChannel      string `yaml:"trades_channel"`
	AcksChannel        string `yaml:"acks_channel"`
	SnapshotsChannel   string `yaml:"snapshots_channel"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	TradeTopic string   `yaml:"trade_topic"`
	GroupID    string   `yaml:"group_id"`
	DLQTopic   string   `yaml:"dlq_topic"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	LogLevel    string                           `yaml:"log_level"`
	Engine      *EngineConfig                    `yaml:"engine"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka       *KafkaConfig                     `yaml:"kafka"`
	TradesDB    *postgres_wrapper.PostgresConfig `yaml:"trades_db"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
