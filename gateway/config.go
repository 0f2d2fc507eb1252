package gateway

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// Config is the gateway's top-level configuration, loaded from a single
// YAML file. Grounded on the teacher's GatewayOption (gateway/gateway.go):
// Services/SchemaFiles survive as SchemaFiles for a single schema instead
// of one-per-subgraph, Postgres is new (the teacher had no backing
// database; pgsource needs one), and validator tags replace the teacher's
// ad-hoc zero-value checks with declarative required/min constraints.
type Config struct {
	Endpoint        string               `yaml:"endpoint" validate:"required"`
	ServiceName     string               `yaml:"service_name" validate:"required"`
	Port            int                  `yaml:"port" validate:"required,min=1,max=65535"`
	TimeoutDuration string               `yaml:"timeout_duration"`
	SchemaFiles     []string             `yaml:"schema_files" validate:"required,min=1"`
	Postgres        PostgresConfig       `yaml:"postgres"`
	Opentelemetry   OpentelemetrySetting `yaml:"opentelemetry"`
}

// PostgresConfig configures the pgx pool backing pgsource-based resolvers.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// OpentelemetrySetting configures request tracing.
type OpentelemetrySetting struct {
	Tracing OpentelemetryTracingSetting `yaml:"tracing"`
}

// OpentelemetryTracingSetting is the teacher's OpentelemetryTracingSetting,
// extended with Endpoint/Insecure so it maps directly onto telemetry.Config
// instead of only toggling a boolean.
type OpentelemetryTracingSetting struct {
	Enable   bool   `yaml:"enable" default:"false"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure" default:"true"`
}

// LoadConfig reads and validates a Config from path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gateway: reading config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("gateway: parsing config %q: %w", path, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("gateway: invalid config %q: %w", path, err)
	}

	return &cfg, nil
}

// ReadSchemaFiles concatenates cfg's schema files into one SDL document.
func (cfg *Config) ReadSchemaFiles() (string, error) {
	var sdl []byte
	for _, f := range cfg.SchemaFiles {
		src, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("gateway: reading schema file %q: %w", f, err)
		}
		sdl = append(sdl, src...)
		sdl = append(sdl, '\n')
	}
	return string(sdl), nil
}
