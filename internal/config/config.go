package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Store    StoreConfig
	Lock     LockConfig
	Redis    RedisConfig
	Tax      TaxConfig
	Storage  StorageConfig
	Export   ExportConfig
	ACH      ACHConfig
	Company  CompanyConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name     string `env:"APP_NAME, default=payroll-engine"`
	Port     int    `env:"APP_PORT, default=8080"`
	Env      string `env:"APP_ENV, default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	Version  string `env:"APP_VERSION, default=v1.0.0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME, default=payroll"`
	SSLMode  string `env:"DB_SSL_MODE, default=disable"`
	Migrate  bool   `env:"DB_MIGRATE, default=true"`
}

// StoreConfig selects the repository backend ("postgres" or "memory")
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=postgres"`
}

// LockConfig selects the run lock backend ("memory" or "redis")
type LockConfig struct {
	Driver string        `env:"LOCK_DRIVER, default=memory"`
	TTL    time.Duration `env:"LOCK_TTL, default=30s"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// TaxConfig configures the external withholding provider.
// An empty URL runs every calculation on the flat-rate fallback.
type TaxConfig struct {
	ProviderURL    string        `env:"TAX_PROVIDER_URL"`
	Timeout        time.Duration `env:"TAX_PROVIDER_TIMEOUT, default=3s"`
	HealthInterval time.Duration `env:"TAX_HEALTH_INTERVAL, default=1m"`
}

type StorageConfig struct {
	Type     string `env:"STORAGE_TYPE, default=local"`
	BasePath string `env:"STORAGE_BASE_PATH, default=./exports"`
}

type ExportConfig struct {
	Workers int `env:"EXPORT_WORKERS, default=4"`
}

// ACHConfig holds the originator identity written into NACHA file and batch headers
type ACHConfig struct {
	ImmediateDestination     string `env:"ACH_IMMEDIATE_DESTINATION"`
	ImmediateDestinationName string `env:"ACH_IMMEDIATE_DESTINATION_NAME"`
	ImmediateOrigin          string `env:"ACH_IMMEDIATE_ORIGIN"`
	ImmediateOriginName      string `env:"ACH_IMMEDIATE_ORIGIN_NAME"`
	CompanyName              string `env:"ACH_COMPANY_NAME"`
	CompanyID                string `env:"ACH_COMPANY_ID"`
	ODFI                     string `env:"ACH_ODFI"`
}

// CompanyConfig is printed on certified payroll reports
type CompanyConfig struct {
	Name    string `env:"COMPANY_NAME, default=Contractor"`
	Address string `env:"COMPANY_ADDRESS"`
}

func Load() (*Config, error) {
	// .env is optional, real deployments inject the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.Store.Driver)
	}

	switch c.Lock.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported LOCK_DRIVER: %s", c.Lock.Driver)
	}

	if c.Tax.Timeout <= 0 {
		return fmt.Errorf("TAX_PROVIDER_TIMEOUT must be positive")
	}
	if c.Export.Workers <= 0 {
		return fmt.Errorf("EXPORT_WORKERS must be positive")
	}

	if len(c.ACH.ODFI) != 8 || !validator.IsNumeric(c.ACH.ODFI) {
		return fmt.Errorf("ACH_ODFI must be the 8-digit routing prefix of the originating bank")
	}
	if c.ACH.ImmediateDestination == "" {
		return fmt.Errorf("ACH_IMMEDIATE_DESTINATION is required")
	}
	if c.ACH.ImmediateOrigin == "" {
		return fmt.Errorf("ACH_IMMEDIATE_ORIGIN is required")
	}
	if c.ACH.CompanyID == "" {
		return fmt.Errorf("ACH_COMPANY_ID is required")
	}
	if c.ACH.CompanyName == "" {
		return fmt.Errorf("ACH_COMPANY_NAME is required")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
