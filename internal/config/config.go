package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds everything needed to run an editor session.
type Config struct {
	// ManifestPaths are element metadata files or directories, loaded on top
	// of the built-in catalog.
	ManifestPaths []string `yaml:"manifest_paths"`
	// TextPath is the flow text file.
	TextPath string `yaml:"text_path"`

	Debounce            time.Duration `yaml:"debounce" validate:"min=0"`
	ProximityRadius     float64       `yaml:"proximity_radius" validate:"gt=0"`
	GridSize            int           `yaml:"grid_size" validate:"min=1,max=200"`
	ReadOnly            bool          `yaml:"read_only"`
	AllowDuplicateLinks bool          `yaml:"allow_duplicate_links"`

	LogLevel        string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string `yaml:"log_format" validate:"oneof=text json"`
	HealthcheckPort int    `yaml:"healthcheck_port" validate:"min=0,max=65535"`

	BridgeURL       string `yaml:"bridge_url" validate:"omitempty,url"`
	BridgeNamespace string `yaml:"bridge_namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Debounce:        300 * time.Millisecond,
		ProximityRadius: 30,
		GridSize:        10,
		LogLevel:        "info",
		LogFormat:       "text",
		BridgeNamespace: "/",
	}
}

// Load reads a YAML file over cfg. Keys absent from the file keep their
// current values.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and returns the first problem in a user
// friendly form.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, e.Param())
		case "url":
			return fmt.Errorf("%s: must be a valid URL", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
