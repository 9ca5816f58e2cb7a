// Package config handles loading and parsing application configuration.
// The config file path comes from (in priority order):
//  1. A command-line flag:      roster serve --config=/path/to/config.yaml
//  2. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//
// The parsed values are returned as a *Config pointer so the struct is
// shared by reference rather than copied everywhere.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aanand-mishra/student-roster/internal/utils/response"
)

// Storage drivers understood by the storage layer.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverModernc = "sqlite"  // modernc.org/sqlite (pure Go)
	DriverMemory  = "memory"  // nothing survives a restart
)

// Running total policies. See Roster.TotalPolicy.
const (
	PolicyGuarded = "guarded"
	PolicyLegacy  = "legacy"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// StorageDriver selects the key-value backend.
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite3" validate:"oneof=sqlite3 sqlite memory"`

	// StoragePath is the filesystem path to the SQLite .db file.
	// Ignored by the memory driver.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" validate:"required_unless=StorageDriver memory"`

	// SessionSecret signs the flash-message cookie used for toasts.
	SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true" validate:"min=8"`

	// HTTPServer is embedded (not a pointer) so its fields are accessible
	// directly on Config:  cfg.HTTPServer.Addr  or after promotion cfg.Addr
	HTTPServer `yaml:"http_server"`

	Roster Roster `yaml:"roster"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`
}

// Roster holds the knobs of the roster store.
type Roster struct {
	// ConfirmTimeout is how long a paid-toggle request waits for its
	// confirming click. Zero means it waits forever.
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" env:"ROSTER_CONFIRM_TIMEOUT" env-default:"0s" validate:"gte=0"`

	// TotalPolicy decides whether the running total moves when a points
	// action does not move a student ("legacy") or not ("guarded").
	TotalPolicy string `yaml:"total_policy" env:"ROSTER_TOTAL_POLICY" env-default:"guarded" validate:"oneof=guarded legacy"`
}

// ResolvePath returns flagValue when set, otherwise CONFIG_PATH.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}

// Load reads, validates, and returns the config stored at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	// Verify the file exists before trying to read it so the message is
	// clearer than a bare "open: no such file".
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// cleanenv.ReadConfig reads the YAML file and populates the struct.
	// It also reads any env:"..." tagged fields from the environment,
	// applies env-default values, and checks env-required constraints.
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := newValidator().Struct(cfg); err != nil {
		// validator.ValidationErrors lists every failing field; turn it
		// into one readable sentence per field.
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid config: %s", response.ValidationError(verrs).Error)
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// newValidator reports fields by their YAML key, the name the user wrote.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// MustLoad is Load for process startup.
//
// The name "MustLoad" follows a Go convention: functions prefixed with
// "Must" are allowed to panic/fatal on failure. Callers do not need to
// check a returned error — if this function returns, the config is valid.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatal(err.Error())
	}
	return cfg
}
