// Package config loads measureset settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Prefix of every environment variable read by Load.
const Prefix = "MEASURESET"

// FileEnv names the YAML configuration file when no path is given.
const FileEnv = Prefix + "_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Catalog     CatalogConfig     `yaml:"catalog" envconfig:"CATALOG"`
	ObjectStore ObjectStoreConfig `yaml:"object_store" envconfig:"OBJECT_STORE"`
	Sharing     SharingConfig     `yaml:"sharing" envconfig:"SHARING"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"measureset.log"`
}

// CatalogConfig contains the defaults used when opening catalogues
type CatalogConfig struct {
	PointerColumn string `yaml:"pointer_column" envconfig:"POINTER_COLUMN" default:"filename"`
	MetadataFile  string `yaml:"metadata_file" envconfig:"METADATA_FILE" default:"meta_data.parquet"`
	Reader        string `yaml:"reader" envconfig:"READER" default:"auto"`
	// Separator forces the CSV separator; empty means detect it.
	Separator string `yaml:"separator" envconfig:"SEPARATOR"`
}

// ObjectStoreConfig contains S3 compatible storage settings. Object
// storage is disabled while Endpoint is empty.
type ObjectStoreConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	Region          string `yaml:"region" envconfig:"REGION"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"USE_SSL" default:"true"`
}

// Enabled reports whether an endpoint is configured.
func (c ObjectStoreConfig) Enabled() bool {
	return c.Endpoint != ""
}

// SharingConfig contains Delta Sharing settings
type SharingConfig struct {
	ProfilePath    string `yaml:"profile_path" envconfig:"PROFILE_PATH"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS" default:"60"`
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment, in increasing order of precedence. An empty path
// falls back to $MEASURESET_CONFIG_FILE, which is ignored when the file
// does not exist.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		merged, err := mergeFile(cfg, path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		default:
			cfg = merged
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// mergeFile applies the YAML file on top of env, then restores every
// value that was set explicitly in the environment.
func mergeFile(env Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	merged := env
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, f := range fields(&merged, &env) {
		if _, set := os.LookupEnv(Prefix + "_" + f.env); set {
			f.restore()
		}
	}
	return merged, nil
}

type field struct {
	env     string
	restore func()
}

func str(env string, dst, src *string) field {
	return field{env: env, restore: func() { *dst = *src }}
}

func fields(dst, src *Config) []field {
	return []field{
		str("LOGGING_LEVEL", &dst.Logging.Level, &src.Logging.Level),
		str("LOGGING_FORMAT", &dst.Logging.Format, &src.Logging.Format),
		str("LOGGING_OUTPUT", &dst.Logging.Output, &src.Logging.Output),
		str("LOGGING_FILE_PATH", &dst.Logging.FilePath, &src.Logging.FilePath),
		str("CATALOG_POINTER_COLUMN", &dst.Catalog.PointerColumn, &src.Catalog.PointerColumn),
		str("CATALOG_METADATA_FILE", &dst.Catalog.MetadataFile, &src.Catalog.MetadataFile),
		str("CATALOG_READER", &dst.Catalog.Reader, &src.Catalog.Reader),
		str("CATALOG_SEPARATOR", &dst.Catalog.Separator, &src.Catalog.Separator),
		str("OBJECT_STORE_ENDPOINT", &dst.ObjectStore.Endpoint, &src.ObjectStore.Endpoint),
		str("OBJECT_STORE_ACCESS_KEY_ID", &dst.ObjectStore.AccessKeyID, &src.ObjectStore.AccessKeyID),
		str("OBJECT_STORE_SECRET_ACCESS_KEY", &dst.ObjectStore.SecretAccessKey, &src.ObjectStore.SecretAccessKey),
		str("OBJECT_STORE_REGION", &dst.ObjectStore.Region, &src.ObjectStore.Region),
		{env: "OBJECT_STORE_USE_SSL", restore: func() { dst.ObjectStore.UseSSL = src.ObjectStore.UseSSL }},
		str("SHARING_PROFILE_PATH", &dst.Sharing.ProfilePath, &src.Sharing.ProfilePath),
		{env: "SHARING_TIMEOUT_SECONDS", restore: func() { dst.Sharing.TimeoutSeconds = src.Sharing.TimeoutSeconds }},
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("unknown log output %q", c.Logging.Output)
	}
	if !strings.EqualFold(c.Logging.Output, "console") && c.Logging.FilePath == "" {
		return errors.New("log output to file needs a file path")
	}
	if c.Catalog.PointerColumn == "" {
		return errors.New("pointer column must not be empty")
	}
	if c.Catalog.MetadataFile == "" {
		return errors.New("metadata file must not be empty")
	}
	if len([]rune(c.Catalog.Separator)) > 1 {
		return fmt.Errorf("separator %q must be a single character", c.Catalog.Separator)
	}
	if c.Sharing.TimeoutSeconds <= 0 {
		return fmt.Errorf("sharing timeout must be positive, got %d", c.Sharing.TimeoutSeconds)
	}
	if c.ObjectStore.Enabled() && (c.ObjectStore.AccessKeyID == "" || c.ObjectStore.SecretAccessKey == "") {
		return errors.New("object store endpoint needs access key id and secret access key")
	}
	return nil
}
