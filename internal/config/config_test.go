package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "measureset.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "filename", cfg.Catalog.PointerColumn)
	assert.Equal(t, "meta_data.parquet", cfg.Catalog.MetadataFile)
	assert.Equal(t, "auto", cfg.Catalog.Reader)
	assert.True(t, cfg.ObjectStore.UseSSL)
	assert.False(t, cfg.ObjectStore.Enabled())
	assert.Equal(t, 60, cfg.Sharing.TimeoutSeconds)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
catalog:
  pointer_column: path
  reader: parquet
object_store:
  use_ssl: false
sharing:
  timeout_seconds: 5
`)
	t.Setenv("MEASURESET_LOGGING_LEVEL", "warn")
	t.Setenv("MEASURESET_SHARING_TIMEOUT_SECONDS", "30")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "path", cfg.Catalog.PointerColumn)
	assert.Equal(t, "parquet", cfg.Catalog.Reader)
	assert.Equal(t, "meta_data.parquet", cfg.Catalog.MetadataFile)
	assert.False(t, cfg.ObjectStore.UseSSL)
	assert.Equal(t, 30, cfg.Sharing.TimeoutSeconds)
}

func TestLoadFileFromEnv(t *testing.T) {
	t.Setenv(FileEnv, writeConfig(t, "catalog:\n  metadata_file: catalog.parquet\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "catalog.parquet", cfg.Catalog.MetadataFile)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	t.Setenv(FileEnv, missing)
	_, err := Load("")
	assert.NoError(t, err)

	_, err = Load(missing)
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Logging: LoggingConfig{Level: "info", Format: "text", Output: "console"},
			Catalog: CatalogConfig{PointerColumn: "filename", MetadataFile: "meta_data.parquet", Reader: "auto"},
			Sharing: SharingConfig{TimeoutSeconds: 60},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad output", mutate: func(c *Config) { c.Logging.Output = "syslog" }, wantErr: true},
		{name: "file output without path", mutate: func(c *Config) { c.Logging.Output = "file" }, wantErr: true},
		{name: "empty pointer column", mutate: func(c *Config) { c.Catalog.PointerColumn = "" }, wantErr: true},
		{name: "long separator", mutate: func(c *Config) { c.Catalog.Separator = ";;" }, wantErr: true},
		{name: "tab separator", mutate: func(c *Config) { c.Catalog.Separator = "\t" }},
		{name: "zero timeout", mutate: func(c *Config) { c.Sharing.TimeoutSeconds = 0 }, wantErr: true},
		{name: "endpoint without keys", mutate: func(c *Config) { c.ObjectStore.Endpoint = "localhost:9000" }, wantErr: true},
		{name: "endpoint with keys", mutate: func(c *Config) {
			c.ObjectStore = ObjectStoreConfig{Endpoint: "localhost:9000", AccessKeyID: "id", SecretAccessKey: "secret"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
