// Package config provides configuration for the dbtypes tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceType selects where the definition table is read from.
type SourceType string

const (
	SourceEmbedded SourceType = "embedded"
	SourceFile     SourceType = "file"
	SourceObject   SourceType = "object"
	SourceSnapshot SourceType = "snapshot"
)

// Config holds the configuration for the dbtypes tools.
type Config struct {
	// DataDir is the base directory for local storage and the catalog
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Strict makes lint findings fatal when loading a table
	Strict bool `json:"strict" yaml:"strict"`

	// Source configuration
	Source SourceConfig `json:"source" yaml:"source"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`
}

// SourceConfig describes the definition table to load.
type SourceConfig struct {
	// Type is the source type: embedded, file, object, snapshot
	Type SourceType `json:"type" yaml:"type"`

	// Path is the table file (for file type)
	Path string `json:"path" yaml:"path"`

	// ObjectPath is the object key inside storage (for object type)
	ObjectPath string `json:"object_path" yaml:"object_path"`

	// SnapshotID selects a catalog snapshot (for snapshot type); empty
	// means the latest
	SnapshotID string `json:"snapshot_id" yaml:"snapshot_id"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`

	// CacheDir keeps local copies of fetched objects (s3 type only);
	// empty disables the cache
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// CacheTTL is how long a cached object is served before refetching
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// CatalogConfig holds snapshot catalog configuration.
type CatalogConfig struct {
	// Path is the SQLite database file
	Path string `json:"path" yaml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Development switches to the human-readable console encoder
	Development bool `json:"development" yaml:"development"`
}

const defaultDataDir = "./data/dbtypes"

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir,
		Source: SourceConfig{
			Type:       SourceEmbedded,
			ObjectPath: "tables/dbtypes.json",
		},
		Storage: StorageConfig{
			Type:     "local",
			CacheTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Resolve fills paths left empty from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.db")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceEmbedded, SourceSnapshot:
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required when source type is file")
		}
	case SourceObject:
		if c.Source.ObjectPath == "" {
			return fmt.Errorf("source.object_path is required when source type is object")
		}
	default:
		return fmt.Errorf("invalid source type: %s (must be embedded, file, object, or snapshot)", c.Source.Type)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DBTYPES_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DBTYPES_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DBTYPES_STRICT"); v != "" {
		cfg.Strict = v == "true" || v == "1"
	}

	// Source configuration
	if v := os.Getenv("DBTYPES_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = SourceType(v)
	}
	if v := os.Getenv("DBTYPES_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("DBTYPES_SOURCE_OBJECT_PATH"); v != "" {
		cfg.Source.ObjectPath = v
	}
	if v := os.Getenv("DBTYPES_SOURCE_SNAPSHOT_ID"); v != "" {
		cfg.Source.SnapshotID = v
	}

	// Storage configuration
	if v := os.Getenv("DBTYPES_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DBTYPES_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DBTYPES_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("DBTYPES_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("DBTYPES_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	if v := os.Getenv("DBTYPES_STORAGE_CACHE_DIR"); v != "" {
		cfg.Storage.CacheDir = v
	}
	if v := os.Getenv("DBTYPES_STORAGE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.CacheTTL = d
		}
	}

	if v := os.Getenv("DBTYPES_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Log configuration
	if v := os.Getenv("DBTYPES_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DBTYPES_LOG_DEVELOPMENT"); v != "" {
		cfg.Log.Development = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.Catalog.Path)}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	if c.Storage.Type == "s3" {
		dirs = append(dirs, c.Storage.CacheDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
