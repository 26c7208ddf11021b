package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 50, cfg.Ingest.HeaderScanRows)
	assert.Empty(t, cfg.Ingest.Encoding)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, "local", cfg.Export.Sink)
	assert.Equal(t, "data_storage/exports", cfg.Export.Dir)
	assert.Equal(t, "exports", cfg.Export.S3.Prefix)
	assert.Equal(t, "us-east-1", cfg.Export.S3.Region)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bom.db", cfg.Store.DatabaseURL)
	assert.Empty(t, cfg.Metrics.Textfile)

	assert.NoError(t, cfg.Validate("run"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/bom
log:
  level: debug
  format: console
ingest:
  encoding: windows-1252
  workers: 8
export:
  sink: s3
  s3:
    bucket: factory-exports
    endpoint: http://localhost:9000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/bom", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "windows-1252", cfg.Ingest.Encoding)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, "s3", cfg.Export.Sink)
	assert.Equal(t, "factory-exports", cfg.Export.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Export.S3.Endpoint)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Ingest.HeaderScanRows)
	assert.Equal(t, "us-east-1", cfg.Export.S3.Region)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BOM_STORE_DRIVER", "none")
	t.Setenv("BOM_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("BOM_INGEST_HEADER_SCAN_ROWS", "120")
	t.Setenv("BOM_EXPORT_S3_BUCKET", "env-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Ingest.HeaderScanRows)
	assert.Equal(t, "env-bucket", cfg.Export.S3.Bucket)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Ingest: IngestConfig{HeaderScanRows: 50, Workers: 4},
		Export: ExportConfig{Sink: "local", Dir: "data_storage/exports"},
		Store:  StoreConfig{Driver: "sqlite", DatabaseURL: "bom.db"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "run defaults", mode: "run", mutate: func(*Config) {}},
		{name: "bom defaults", mode: "bom", mutate: func(*Config) {}},
		{name: "runs defaults", mode: "runs", mutate: func(*Config) {}},
		{
			name:    "zero scan rows",
			mode:    "run",
			mutate:  func(c *Config) { c.Ingest.HeaderScanRows = 0 },
			wantErr: "ingest.header_scan_rows must be > 0",
		},
		{
			name:    "negative workers",
			mode:    "bom",
			mutate:  func(c *Config) { c.Ingest.Workers = -1 },
			wantErr: "ingest.workers must be > 0",
		},
		{
			name:    "unknown sink",
			mode:    "run",
			mutate:  func(c *Config) { c.Export.Sink = "ftp" },
			wantErr: `export.sink must be one of local, s3 (got "ftp")`,
		},
		{
			name:    "s3 without bucket",
			mode:    "run",
			mutate:  func(c *Config) { c.Export.Sink = "s3" },
			wantErr: "export.s3.bucket is required",
		},
		{
			name: "s3 half credentials",
			mode: "run",
			mutate: func(c *Config) {
				c.Export.Sink = "s3"
				c.Export.S3.Bucket = "b"
				c.Export.S3.AccessKeyID = "AKIA"
			},
			wantErr: "must be set together",
		},
		{
			name: "s3 complete",
			mode: "run",
			mutate: func(c *Config) {
				c.Export.Sink = "s3"
				c.Export.S3.Bucket = "b"
			},
		},
		{
			name:    "local without dir",
			mode:    "run",
			mutate:  func(c *Config) { c.Export.Dir = "" },
			wantErr: "export.dir is required",
		},
		{
			name:    "unknown driver",
			mode:    "run",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: `store.driver must be one of sqlite, postgres, none (got "mysql")`,
		},
		{
			name:    "postgres without url",
			mode:    "run",
			mutate:  func(c *Config) { c.Store.Driver = "postgres"; c.Store.DatabaseURL = "" },
			wantErr: "store.database_url is required for driver postgres",
		},
		{
			name:   "run without store",
			mode:   "run",
			mutate: func(c *Config) { c.Store.Driver = "none" },
		},
		{
			name:    "runs without store",
			mode:    "runs",
			mutate:  func(c *Config) { c.Store.Driver = "none" },
			wantErr: "store.driver must not be none",
		},
		{
			name:   "bom ignores export",
			mode:   "bom",
			mutate: func(c *Config) { c.Export.Sink = "ftp" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Ingest.Workers = 0
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.workers must be > 0")
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
