package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP       HTTP
		Log        Log
		PG         PG
		Dispatcher Dispatcher
		Kafka      Kafka
		S3         S3
		Swagger    Swagger
	}

	HTTP struct {
		IngestPort     string `env:"HTTP_INGEST_PORT" envDefault:"8080"`
		MgmtPort       string `env:"HTTP_MGMT_PORT" envDefault:"8081"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	Dispatcher struct {
		PollInterval      time.Duration `env:"DISPATCHER_POLL_INTERVAL" envDefault:"1s"`
		Workers           int           `env:"DISPATCHER_WORKERS" envDefault:"4"`
		RecoverInterval   time.Duration `env:"DISPATCHER_RECOVER_INTERVAL" envDefault:"1m"`
		ActiveStaleAfter  time.Duration `env:"DISPATCHER_ACTIVE_STALE_AFTER" envDefault:"5m"`
		RetentionInterval time.Duration `env:"DISPATCHER_RETENTION_INTERVAL" envDefault:"1h"`
		Retention         time.Duration `env:"DISPATCHER_RETENTION" envDefault:"0"` // 0 keeps completed requests forever
		RetentionBatch    int           `env:"DISPATCHER_RETENTION_BATCH" envDefault:"100"`
		MaxAttempts       int           `env:"DISPATCHER_MAX_ATTEMPTS" envDefault:"20"`
		ShutdownTimeout   time.Duration `env:"DISPATCHER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Kafka struct {
		Enabled         bool          `env:"KAFKA_ENABLED" envDefault:"false"`
		Brokers         []string      `env:"KAFKA_BROKERS" envDefault:""`
		GroupID         string        `env:"KAFKA_GROUP_ID" envDefault:"request-relay"`
		CaptureTopic    string        `env:"KAFKA_CAPTURE_TOPIC" envDefault:"relay.captures"`
		AlertTopic      string        `env:"KAFKA_ALERT_TOPIC" envDefault:"relay.alerts"`
		CommitTimeout   time.Duration `env:"KAFKA_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout  time.Duration `env:"KAFKA_PROCESS_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"KAFKA_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	S3 struct {
		Enabled        bool          `env:"S3_ENABLED" envDefault:"false"`
		Endpoint       string        `env:"S3_ENDPOINT" envDefault:""`
		AccessKey      string        `env:"S3_ACCESS_KEY" envDefault:""`
		SecretKey      string        `env:"S3_SECRET_KEY" envDefault:""`
		Bucket         string        `env:"S3_BUCKET" envDefault:""`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
