package config // package config loads application configuration from environment variables

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers accepted in STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named in its envconfig tag.  A .env file in the
// working directory is loaded first when present; real environment
// variables always win over it.
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"dev"`             // application environment (dev/test/prod)
	Port            string        `envconfig:"APP_PORT" default:"8080"`           // HTTP port to listen on
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`          // zap level name
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`    // grace period for in-flight requests

	StoreDriver    string `envconfig:"STORE_DRIVER" default:"file"`        // file, mysql or postgres
	DataRoot       string `envconfig:"DATA_ROOT"`                          // explicit data directory for the file driver
	DataRootMarker string `envconfig:"DATA_ROOT_MARKER" default:"backend"` // directory searched upwards when DATA_ROOT is empty

	DBUser string `envconfig:"DB_USER"`                // MySQL user
	DBPass string `envconfig:"DB_PASS"`                // MySQL password (empty allowed)
	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBPort string `envconfig:"DB_PORT" default:"3306"`
	DBName string `envconfig:"DB_NAME"`

	PGDSN string `envconfig:"PG_DSN"` // PostgreSQL connection string

	OTelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"cinema-booking-core"`
}

// Load reads the optional .env file, decodes the environment into a Config
// and checks that the chosen storage driver has what it needs.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate enforces the per-driver required variables.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.DataRoot == "" && c.DataRootMarker == "" {
			return fmt.Errorf("config: file driver needs DATA_ROOT or DATA_ROOT_MARKER")
		}
	case DriverMySQL:
		required := [][2]string{{"DB_USER", c.DBUser}, {"DB_HOST", c.DBHost}, {"DB_PORT", c.DBPort}, {"DB_NAME", c.DBName}}
		for _, kv := range required {
			if kv[1] == "" {
				return fmt.Errorf("config: missing required env var: %s", kv[0])
			}
		}
	case DriverPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("config: missing required env var: PG_DSN")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
