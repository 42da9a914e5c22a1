package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// AppName is used for XDG directory paths.
	AppName = "cropdoc"

	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultLogLevel        = "INFO"
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultModelFile       = "rice_disease.onnx"
)

var validate = validator.New()

// Config holds the service settings read from the environment.
type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0" validate:"required"`
	Port            int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	ModelPath       string        `env:"MODEL_PATH" validate:"required"`
	OnnxLibraryPath string        `env:"ONNX_LIBRARY_PATH"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES,default=10485760" validate:"min=1024"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	TelegramToken   string        `env:"TELEGRAM_TOKEN"`
	History         bool          `env:"HISTORY,default=true"`
	HistoryDir      string        `env:"HISTORY_DIR"`
	AutoOrient      bool          `env:"AUTO_ORIENT,default=false"`
}

// DefaultModelPath is where the model is looked up when MODEL_PATH is unset.
func DefaultModelPath() string {
	return filepath.Join(xdg.DataHome, AppName, "models", DefaultModelFile)
}

// DefaultHistoryDir holds the prediction history when HISTORY_DIR is unset.
func DefaultHistoryDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Load reads an optional .env file, then the environment, fills defaults
// and validates the result.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	es, err := environ()
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath()
	}
	if cfg.HistoryDir == "" {
		cfg.HistoryDir = DefaultHistoryDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// environ is the process environment with blank variables dropped, so that
// PORT= falls back to the default instead of failing to parse.
func environ() (env.EnvSet, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, err
	}
	for k, v := range es {
		if strings.TrimSpace(v) == "" {
			delete(es, k)
		}
	}
	return es, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
