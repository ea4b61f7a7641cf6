// Package config loads the inked TOML configuration file and applies
// INKED_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"inked/internal/blob"
	"inked/internal/core"
	"inked/internal/events"
	"inked/internal/logging"
)

const (
	EnvHTTPAddr       = "INKED_HTTP_ADDR"
	EnvStorageDriver  = "INKED_STORAGE_DRIVER"
	EnvSQLitePath     = "INKED_SQLITE_PATH"
	EnvPostgresDSN    = "INKED_POSTGRES_DSN"
	EnvBlobDriver     = "INKED_BLOB_DRIVER"
	EnvBlobFSRoot     = "INKED_BLOB_FS_ROOT"
	EnvBlobS3Bucket   = "INKED_BLOB_S3_BUCKET"
	EnvBlobS3Region   = "INKED_BLOB_S3_REGION"
	EnvBlobS3Endpoint = "INKED_BLOB_S3_ENDPOINT"
	EnvSeedDefaults   = "INKED_SEED_DEFAULTS"
	EnvSeedFile       = "INKED_SEED_FILE"
)

const (
	defaultAddr         = ":8080"
	defaultSQLitePath   = "inked.db"
	defaultFSRoot       = "./blobs"
	defaultStreamBuffer = 32
	defaultLogoExpiry   = 15 * time.Minute
)

type Config struct {
	HTTP    HTTPConfig         `toml:"http"`
	Storage core.StorageConfig `toml:"storage"`
	Blob    blob.Config        `toml:"blob"`
	Log     logging.Config     `toml:"log"`
	Events  EventsConfig       `toml:"events"`
	Seed    SeedConfig         `toml:"seed"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
	// LogoURLExpiry is the lifetime of presigned logo URLs. Zero disables
	// redirects.
	LogoURLExpiry time.Duration `toml:"logo_url_expiry"`
}

type EventsConfig struct {
	Source       string `toml:"source"`
	StreamBuffer int    `toml:"stream_buffer"`
}

type SeedConfig struct {
	// Defaults loads the built-in collection into an empty store.
	Defaults bool `toml:"defaults"`
	// File loads a fixture file into an empty store instead.
	File string `toml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Addr: defaultAddr, LogoURLExpiry: defaultLogoExpiry},
		Storage: core.StorageConfig{Driver: core.StorageMemory},
		Blob:    blob.Config{Driver: string(blob.DriverMemory)},
		Log:     logging.DefaultConfig(logging.ProfileRuntime),
		Events:  EventsConfig{Source: events.DefaultSource, StreamBuffer: defaultStreamBuffer},
		Seed:    SeedConfig{Defaults: true},
	}
	return cfg
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.fillDefaults()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	logging.ApplyEnv(&cfg.Log)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	md, err := toml.Decode(string(data), out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults restores defaults a file cleared explicitly.
func (c *Config) fillDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultAddr
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = core.StorageMemory
	}
	if c.Storage.Driver == core.StorageSQLite && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = defaultSQLitePath
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = string(blob.DriverMemory)
	}
	if c.Blob.Driver == string(blob.DriverFilesystem) && c.Blob.FSRoot == "" {
		c.Blob.FSRoot = defaultFSRoot
	}
	if c.Events.Source == "" {
		c.Events.Source = events.DefaultSource
	}
	if c.Events.StreamBuffer <= 0 {
		c.Events.StreamBuffer = defaultStreamBuffer
	}
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Addr, EnvHTTPAddr)
	if v, ok := os.LookupEnv(EnvStorageDriver); ok && v != "" {
		c.Storage.Driver = core.StorageDriver(strings.ToLower(v))
	}
	setString(&c.Storage.SQLitePath, EnvSQLitePath)
	setString(&c.Storage.PostgresDSN, EnvPostgresDSN)
	if v, ok := os.LookupEnv(EnvBlobDriver); ok && v != "" {
		c.Blob.Driver = strings.ToLower(v)
	}
	setString(&c.Blob.FSRoot, EnvBlobFSRoot)
	setString(&c.Blob.S3.Bucket, EnvBlobS3Bucket)
	setString(&c.Blob.S3.Region, EnvBlobS3Region)
	setString(&c.Blob.S3.Endpoint, EnvBlobS3Endpoint)
	setString(&c.Seed.File, EnvSeedFile)
	if v, ok := os.LookupEnv(EnvSeedDefaults); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeedDefaults, err)
		}
		c.Seed.Defaults = b
	}
	return nil
}

func setString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate checks driver names and the settings each driver needs.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.LogoURLExpiry < 0 {
		errs = append(errs, errors.New("http.logo_url_expiry must not be negative"))
	}
	switch c.Storage.Driver {
	case core.StorageMemory:
	case core.StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for sqlite"))
		}
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverMemory:
	case blob.DriverFilesystem:
		if c.Blob.FSRoot == "" {
			errs = append(errs, errors.New("blob.fs_root is required for fs"))
		}
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}
