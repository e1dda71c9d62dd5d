package app

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Entity describes one legal entity processed by the pipeline.
type Entity struct {
	Key     string `validate:"required,lowercase"`
	Company string `validate:"required,oneof=SL LLC"`
	Label   string `validate:"required"`
	DataDir string `validate:"required"`
}

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	BaseDir   string `envconfig:"GANNET_BASE_DIR" default:"."`
	OutputDir string `envconfig:"GANNET_OUTPUT_DIR" default:"output"`

	FxServiceURL string        `envconfig:"FX_SERVICE_URL" default:"https://api.frankfurter.dev/v1"`
	FxTimeout    time.Duration `envconfig:"FX_TIMEOUT" default:"10s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	FxSnapshotTTL time.Duration `envconfig:"FX_SNAPSHOT_TTL" default:"12h"`

	PGDSN string `envconfig:"PG_DSN" default:""`

	OpsAddr           string        `envconfig:"OPS_ADDR" default:":8080"`
	OpsReadTimeout    time.Duration `envconfig:"OPS_READ_TIMEOUT" default:"15s"`
	OpsWriteTimeout   time.Duration `envconfig:"OPS_WRITE_TIMEOUT" default:"15s"`
	OpsRequestTimeout time.Duration `envconfig:"OPS_REQUEST_TIMEOUT" default:"30s"`
	// Bcrypt hash of the bearer token accepted by mutating ops endpoints.
	// Empty disables authentication (development only).
	OpsTokenHash string `envconfig:"OPS_TOKEN_HASH" default:""`

	// FiscalYear1 anchors the booking-window matrix; the matrix tracks
	// FiscalYear1 and FiscalYear1+1 only.
	FiscalYear1 int `envconfig:"FISCAL_YEAR1" default:"2026"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.FxServiceURL == "" {
		return nil, errors.New("fx service url must be provided")
	}
	if cfg.FiscalYear1 < 2000 {
		return nil, errors.New("fiscal year out of range")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Entities returns the configured legal entities, validated.
func (c *Config) Entities() ([]Entity, error) {
	entities := []Entity{
		{Key: "espana", Company: "SL", Label: "España", DataDir: filepath.Join(c.BaseDir, "data", "espana")},
		{Key: "mexico", Company: "LLC", Label: "México", DataDir: filepath.Join(c.BaseDir, "data", "mexico")},
	}
	v := validator.New()
	for _, e := range entities {
		if err := v.Struct(e); err != nil {
			return nil, err
		}
	}
	return entities, nil
}
