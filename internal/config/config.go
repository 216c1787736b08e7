package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"ledgerport"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	}

	DB struct {
		Host        string `envconfig:"DB_HOST" default:"localhost"`
		Port        int    `envconfig:"DB_PORT" default:"5432"`
		User        string `envconfig:"DB_USER" default:"postgres"`
		Password    string `envconfig:"DB_PASSWORD" default:""`
		Name        string `envconfig:"DB_NAME" default:"ledger"`
		MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
		AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Import struct {
		MaxUpload      int64  `envconfig:"IMPORT_MAX_UPLOAD" default:"20971520"`
		HeaderScanRows int    `envconfig:"IMPORT_HEADER_SCAN_ROWS" default:"30"`
		ChunkSize      int    `envconfig:"IMPORT_CHUNK_SIZE" default:"1000"`
		KeyMode        string `envconfig:"IMPORT_KEY_MODE" default:"encoded"`
		SampleRows     int    `envconfig:"IMPORT_SAMPLE_ROWS" default:"5"`
	}

	Search struct {
		MaxLimit  int    `envconfig:"SEARCH_MAX_LIMIT" default:"500"`
		SumScope  string `envconfig:"SEARCH_SUM_SCOPE" default:"filter"`
		ExportMax int    `envconfig:"SEARCH_EXPORT_MAX" default:"50000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Import.KeyMode {
	case "encoded", "hash":
	default:
		return fmt.Errorf("invalid IMPORT_KEY_MODE %q: want encoded or hash", c.Import.KeyMode)
	}

	switch c.Search.SumScope {
	case "filter", "page":
	default:
		return fmt.Errorf("invalid SEARCH_SUM_SCOPE %q: want filter or page", c.Search.SumScope)
	}

	if c.Import.MaxUpload <= 0 {
		return fmt.Errorf("IMPORT_MAX_UPLOAD must be positive")
	}

	return nil
}
