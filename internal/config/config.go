package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	StateBackend string `envconfig:"STATE_BACKEND" default:"memory"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"storefront:"`

	MongoURI        string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"storefront"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"engine_state"`

	// empty disables the order archive
	MySQLDSN string `envconfig:"MYSQL_DSN" default:""`

	// empty disables event publishing
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"inventory-updated"`

	CatalogFile string `envconfig:"CATALOG_FILE" default:""`

	WorkerCount        int           `envconfig:"WORKER_COUNT" default:"4"`
	OrderQueueSize     int           `envconfig:"ORDER_QUEUE_SIZE" default:"1000"`
	PersistenceTimeout time.Duration `envconfig:"PERSISTENCE_TIMEOUT" default:"2s"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the environment, optionally seeded from a .env file in the working
// directory. Values already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.OrderQueueSize <= 0 {
		return fmt.Errorf("order queue size must be positive, got %d", c.OrderQueueSize)
	}
	if c.PersistenceTimeout <= 0 {
		return errors.New("persistence timeout must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

func (c *Config) ArchiveEnabled() bool { return c.MySQLDSN != "" }

func (c *Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
