package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	ValidationVersion = "version"
	ValidationNone    = "none"
)

// Config is the amld service configuration. AuthToken, when set, is required
// as a bearer token on /v1 routes.
type Config struct {
	ID          string     `toml:"id" yaml:"id"`
	Addr        string     `toml:"addr" yaml:"addr"`
	CorsOrigins []string   `toml:"cors_origins" yaml:"cors_origins"`
	AuthToken   string     `toml:"auth_token" yaml:"auth_token"`
	Validation  Validation `toml:"validation" yaml:"validation"`
	Archive     Archive    `toml:"archive" yaml:"archive"`
	Metrics     Metrics    `toml:"metrics" yaml:"metrics"`
}

// Validation selects the policy applied to every parsed message.
type Validation struct {
	Mode              string `toml:"mode" yaml:"mode"`
	SupportedVersions []int  `toml:"supported_versions" yaml:"supported_versions"`
}

type Archive struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type Metrics struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

func Default() Config {
	return Config{
		ID:   "amld",
		Addr: ":9300",
		Validation: Validation{
			Mode:              ValidationVersion,
			SupportedVersions: []int{aml.SupportedVersion},
		},
		Archive: Archive{Path: "amld.db"},
		Metrics: Metrics{Enabled: true},
	}
}

// Load reads a TOML or YAML (by extension) config file over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.Validation.Mode = strings.ToLower(strings.TrimSpace(cfg.Validation.Mode))
	cfg.Archive.Path = strings.TrimSpace(cfg.Archive.Path)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = toml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("config missing id")
	}
	if cfg.Addr == "" {
		return fmt.Errorf("config missing addr")
	}
	if err := cfg.Validation.check(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	if cfg.Archive.Enabled && cfg.Archive.Path == "" {
		return fmt.Errorf("archive: path is required when enabled")
	}
	return nil
}

func (v Validation) check() error {
	switch v.Mode {
	case ValidationVersion:
		if len(v.SupportedVersions) == 0 {
			return fmt.Errorf("supported_versions is required for mode %q", ValidationVersion)
		}
		if slices.ContainsFunc(v.SupportedVersions, func(n int) bool { return n < 0 }) {
			return fmt.Errorf("supported_versions must not be negative")
		}
	case ValidationNone:
	default:
		return fmt.Errorf("unknown mode %q (expected %s or %s)", v.Mode, ValidationVersion, ValidationNone)
	}
	return nil
}

// Validator builds the message validator for v.
func (v Validation) Validator() (aml.Validator[aml.Message], error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if v.Mode == ValidationNone {
		return aml.NoValidation[aml.Message](), nil
	}
	return aml.SupportedVersions(v.SupportedVersions...), nil
}

// ParserOptions returns the aml.Parser options cfg selects.
func (cfg Config) ParserOptions() ([]aml.Option, error) {
	validator, err := cfg.Validation.Validator()
	if err != nil {
		return nil, err
	}
	return []aml.Option{aml.WithValidator(validator)}, nil
}
