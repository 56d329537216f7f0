package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/amlctl/internal/config"
)

// amld config.toml layout; only keys present in the file override defaults.
type fileConfig struct {
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AuthToken   string   `toml:"auth_token"`
	Validation  struct {
		Mode              string `toml:"mode"`
		SupportedVersions []int  `toml:"supported_versions"`
	} `toml:"validation"`
	Archive struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"archive"`
	Metrics struct {
		Enabled bool `toml:"enabled"`
	} `toml:"metrics"`
}

// loadServiceConfig overlays a TOML file onto config.Default. YAML files go
// through config.Load.
func loadServiceConfig(path string) (config.Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.Load(path)
	}

	cfg := config.Default()
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load amld config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.Config{}, fmt.Errorf("load amld config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if meta.IsDefined("validation", "mode") {
		cfg.Validation.Mode = strings.ToLower(strings.TrimSpace(raw.Validation.Mode))
	}
	if meta.IsDefined("validation", "supported_versions") {
		cfg.Validation.SupportedVersions = raw.Validation.SupportedVersions
	}
	if meta.IsDefined("archive", "enabled") {
		cfg.Archive.Enabled = raw.Archive.Enabled
	}
	if meta.IsDefined("archive", "path") {
		cfg.Archive.Path = strings.TrimSpace(raw.Archive.Path)
	}
	if meta.IsDefined("metrics", "enabled") {
		cfg.Metrics.Enabled = raw.Metrics.Enabled
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("load amld config: %w", err)
	}
	return cfg, nil
}
