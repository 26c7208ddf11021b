package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bom-cli/internal/artifact"
	"github.com/sells-group/bom-cli/internal/metrics"
	"github.com/sells-group/bom-cli/internal/pipeline"
	"github.com/sells-group/bom-cli/internal/store"
	"github.com/sells-group/bom-cli/internal/vendor"
)

// initStore opens and migrates the lineage store. It returns nil when the
// store is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSink(ctx context.Context) (artifact.Sink, error) {
	switch cfg.Export.Sink {
	case "local":
		return artifact.NewLocalSink(cfg.Export.Dir), nil
	case "s3":
		s3Sink, err := artifact.NewS3Sink(ctx, artifact.S3Config{
			Bucket:          cfg.Export.S3.Bucket,
			Prefix:          cfg.Export.S3.Prefix,
			Region:          cfg.Export.S3.Region,
			Endpoint:        cfg.Export.S3.Endpoint,
			AccessKeyID:     cfg.Export.S3.AccessKeyID,
			SecretAccessKey: cfg.Export.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return s3Sink, nil
	default:
		return nil, eris.Errorf("unsupported export sink: %s", cfg.Export.Sink)
	}
}

func newRegistry() *vendor.Registry {
	return vendor.NewRegistry(vendor.Options{
		HeaderScanRows: cfg.Ingest.HeaderScanRows,
		Encoding:       cfg.Ingest.Encoding,
		Sheet:          cfg.Ingest.Sheet,
	})
}

// applySheetFlag lets --sheet override ingest.sheet for one command.
func applySheetFlag(cmd *cobra.Command) {
	if sheet, _ := cmd.Flags().GetString("sheet"); sheet != "" {
		cfg.Ingest.Sheet = sheet
	}
}

func newEngine(sink artifact.Sink, st store.Store, rec *metrics.Recorder) *pipeline.Engine {
	return pipeline.New(newRegistry(), sink, st, rec, pipeline.Options{Workers: cfg.Ingest.Workers})
}

// flushMetrics writes the Prometheus textfile when one is configured.
func flushMetrics(rec *metrics.Recorder) {
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		zap.L().Warn("metrics: textfile write failed", zap.Error(err))
	}
}
