package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msmehub/assetstore/pkg/assetstore"
	boltledger "github.com/msmehub/assetstore/pkg/assetstore/ledger/bolt"
	fsledger "github.com/msmehub/assetstore/pkg/assetstore/ledger/fs"
	memoryledger "github.com/msmehub/assetstore/pkg/assetstore/ledger/memory"
	s3ledger "github.com/msmehub/assetstore/pkg/assetstore/ledger/s3"
	memoryregistry "github.com/msmehub/assetstore/pkg/assetstore/registry/memory"
	pgregistry "github.com/msmehub/assetstore/pkg/assetstore/registry/postgres"
)

// ServerConfig represents server configuration for the asset store service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Registry configuration
	RegistryType string `env:"REGISTRY_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL  string `env:"DATABASE_URL"`

	// Chunk ledger configuration
	LedgerType string `env:"LEDGER_TYPE" env-default:"memory"` // "memory", "fs", "bolt", "s3"
	LedgerDir  string `env:"LEDGER_DIR" env-default:"./data/chunks"`
	BoltPath   string `env:"LEDGER_BOLT_PATH" env-default:"./data/chunks.db"`

	S3 S3Config

	// Quota configuration. Zero disables the corresponding limit.
	CapacityBytes   int64 `env:"CAPACITY_BYTES" env-default:"0"`
	OwnerQuotaBytes int64 `env:"OWNER_QUOTA_BYTES" env-default:"0"`
	MaxCallPayload  int64 `env:"MAX_CALL_PAYLOAD" env-default:"0"`

	// Session expiry sweep
	SessionTTL    time.Duration `env:"SESSION_TTL" env-default:"24h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" env-default:"1h"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`

	EnableEventLogging bool `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// S3Config represents configuration for the S3 chunk ledger
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Bucket          string `env:"AWS_S3_BUCKET"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Load reads configuration from the environment on top of defaults
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.RegistryType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when using the postgres registry")
		}
	default:
		return fmt.Errorf("unsupported registry type: %s", c.RegistryType)
	}

	switch c.LedgerType {
	case "memory", "fs", "bolt":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required when using the s3 ledger")
		}
	default:
		return fmt.Errorf("unsupported ledger type: %s", c.LedgerType)
	}

	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (assetstore.Service, error) {
	registry, err := c.buildRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	ledger, err := c.buildLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to build chunk ledger: %w", err)
	}

	options := []assetstore.Option{
		assetstore.WithRegistry(registry),
		assetstore.WithLedger(ledger),
		assetstore.WithGuard(assetstore.NewGuard(c.CapacityBytes, c.OwnerQuotaBytes)),
	}

	if c.MaxCallPayload > 0 {
		options = append(options, assetstore.WithMaxCallPayload(c.MaxCallPayload))
	}
	if c.EnableEventLogging {
		options = append(options, assetstore.WithEventSink(assetstore.NewSlogEventSink(nil)))
	}

	return assetstore.New(options...)
}

// buildRegistry creates a Registry based on the configuration
func (c *ServerConfig) buildRegistry() (assetstore.Registry, error) {
	switch c.RegistryType {
	case "memory":
		return memoryregistry.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return pgregistry.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported registry type: %s", c.RegistryType)
	}
}

// buildLedger creates a ChunkLedger based on the configuration
func (c *ServerConfig) buildLedger() (assetstore.ChunkLedger, error) {
	switch c.LedgerType {
	case "memory":
		return memoryledger.New(), nil
	case "fs":
		return fsledger.New(fsledger.Config{BaseDir: c.LedgerDir})
	case "bolt":
		return boltledger.Open(c.BoltPath)
	case "s3":
		return s3ledger.New(s3ledger.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", c.LedgerType)
	}
}
