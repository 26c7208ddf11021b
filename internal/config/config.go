package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// IngestConfig tunes how vendor files are read and standardized.
type IngestConfig struct {
	HeaderScanRows int    `yaml:"header_scan_rows" mapstructure:"header_scan_rows"`
	Encoding       string `yaml:"encoding" mapstructure:"encoding"`
	Sheet          string `yaml:"sheet" mapstructure:"sheet"`
	Workers        int    `yaml:"workers" mapstructure:"workers"`
}

// ExportConfig selects where merged tables are written.
type ExportConfig struct {
	Sink string   `yaml:"sink" mapstructure:"sink"`
	Dir  string   `yaml:"dir" mapstructure:"dir"`
	S3   S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config holds object-store export settings. Static keys are optional;
// the default AWS credential chain is used when they are empty.
type S3Config struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

// StoreConfig configures the lineage database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MetricsConfig configures Prometheus output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Validate checks that required configuration fields are present for the
// given command mode. Mode is one of "run", "bom", "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		errs = append(errs, c.validateIngest()...)
		errs = append(errs, c.validateExport()...)
		errs = append(errs, c.validateStore()...)
	case "bom":
		errs = append(errs, c.validateIngest()...)
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must not be none to list runs")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateIngest() []string {
	var errs []string
	if c.Ingest.HeaderScanRows <= 0 {
		errs = append(errs, "ingest.header_scan_rows must be > 0")
	}
	if c.Ingest.Workers <= 0 {
		errs = append(errs, "ingest.workers must be > 0")
	}
	return errs
}

func (c *Config) validateExport() []string {
	switch c.Export.Sink {
	case "local":
		if c.Export.Dir == "" {
			return []string{"export.dir is required for the local sink"}
		}
	case "s3":
		if c.Export.S3.Bucket == "" {
			return []string{"export.s3.bucket is required for the s3 sink"}
		}
		if (c.Export.S3.AccessKeyID == "") != (c.Export.S3.SecretAccessKey == "") {
			return []string{"export.s3.access_key_id and export.s3.secret_access_key must be set together"}
		}
	default:
		return []string{fmt.Sprintf("export.sink must be one of local, s3 (got %q)", c.Export.Sink)}
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
	case "none":
	default:
		return []string{fmt.Sprintf("store.driver must be one of sqlite, postgres, none (got %q)", c.Store.Driver)}
	}
	return nil
}

// Load reads configuration from config.yaml (optional) and BOM_* environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ingest.header_scan_rows", 50)
	v.SetDefault("ingest.encoding", "")
	v.SetDefault("ingest.sheet", "")
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("export.sink", "local")
	v.SetDefault("export.dir", "data_storage/exports")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "exports")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bom.db")
	v.SetDefault("metrics.textfile", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
