// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads planexpert's YAML configuration.
//
// A missing file yields Default(). Values from the file override the
// defaults, and a few environment variables override the file:
//
//	PLANEXPERT_DATA_DIR          storage.path
//	PLANEXPERT_LOG_LEVEL         logging.level
//	OTEL_TRACES_EXPORTER         telemetry.trace_exporter
//	OTEL_METRICS_EXPORTER        telemetry.metric_exporter
//	OTEL_EXPORTER_OTLP_ENDPOINT  telemetry.otlp_endpoint
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/planexpert/pkg/logging"
	"github.com/AleutianAI/planexpert/services/planexpert/problem"
	badgerstore "github.com/AleutianAI/planexpert/services/planexpert/storage/badger"
	"github.com/AleutianAI/planexpert/services/planexpert/telemetry"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "planexpert.yaml"

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of planexpert.yaml.
type Config struct {
	Server    Server               `yaml:"server"`
	Storage   Storage              `yaml:"storage"`
	Client    problem.ClientConfig `yaml:"client"`
	Telemetry telemetry.Config     `yaml:"telemetry"`
	Logging   logging.Config       `yaml:"logging"`
}

// Server configures the problem service listener.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Storage configures the Badger store behind the problem service.
type Storage struct {
	Path           string        `yaml:"path" validate:"required_without=InMemory"`
	InMemory       bool          `yaml:"in_memory"`
	SyncWrites     bool          `yaml:"sync_writes"`
	GCInterval     time.Duration `yaml:"gc_interval" validate:"min=0"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

// Badger converts s into the store's open options.
func (s Storage) Badger(logger *slog.Logger) badgerstore.Config {
	return badgerstore.Config{
		Path:           expandHome(s.Path),
		InMemory:       s.InMemory,
		SyncWrites:     s.SyncWrites,
		Logger:         logger,
		GCInterval:     s.GCInterval,
		GCDiscardRatio: s.GCDiscardRatio,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	store := badgerstore.DefaultConfig()
	return Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8600,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Path:           filepath.Join("~", ".planexpert", "data"),
			SyncWrites:     store.SyncWrites,
			GCInterval:     store.GCInterval,
			GCDiscardRatio: store.GCDiscardRatio,
		},
		Client:    problem.DefaultClientConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Logging: logging.Config{
			Level:   logging.LevelInfo,
			Service: "planexpert",
			Format:  logging.FormatAuto,
		},
	}
}

// Load reads path over Default(), applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read the config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes Default() to path, creating parent directories.
// An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PLANEXPERT_DATA_DIR"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PLANEXPERT_LOG_LEVEL"); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("PLANEXPERT_LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
