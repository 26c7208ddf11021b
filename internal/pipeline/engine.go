// Package pipeline orchestrates one run over a vendor's BOM and placement
// files: load, standardize, merge, export and record.
package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bom-cli/internal/artifact"
	"github.com/sells-group/bom-cli/internal/bomerr"
	"github.com/sells-group/bom-cli/internal/merge"
	"github.com/sells-group/bom-cli/internal/metrics"
	"github.com/sells-group/bom-cli/internal/model"
	"github.com/sells-group/bom-cli/internal/normalize"
	"github.com/sells-group/bom-cli/internal/store"
	"github.com/sells-group/bom-cli/internal/vendor"
)

// DefaultWorkers bounds row-level standardization when Options leave it unset.
const DefaultWorkers = 4

// Options tune the engine.
type Options struct {
	Workers int
}

// Engine runs file pairs through a vendor adapter. Sink, store and
// recorder are optional; a nil sink skips the export upload and a nil store
// skips lineage.
type Engine struct {
	registry *vendor.Registry
	sink     artifact.Sink
	store    store.Store
	metrics  *metrics.Recorder
	std      *normalize.Standardizer
	workers  int
}

// New creates an engine.
func New(reg *vendor.Registry, sink artifact.Sink, st store.Store, rec *metrics.Recorder, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{
		registry: reg,
		sink:     sink,
		store:    st,
		metrics:  rec,
		std:      normalize.NewStandardizer(),
		workers:  workers,
	}
}

// RunOpts identifies the inputs of one run.
type RunOpts struct {
	Vendor        model.Vendor
	BOMPath       string
	PlacementPath string
	JobID         string
	CustomerID    string
}

// Result is a completed run: the merged table and its diagnostics.
type Result struct {
	RunID       string
	Records     []model.MergedRecord
	Diagnostics model.Diagnostics
	Artifact    string
}

// Run executes the full pipeline. Structural failures abort the run and
// are returned as *bomerr.Error annotated with stage and file; nothing is
// left in the sink for a failed run.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	adapter, err := e.registry.Get(opts.Vendor)
	if err != nil {
		return nil, err
	}

	rc := NewRunContext(opts.Vendor)
	rc.Log.Info("pipeline: run started",
		zap.String("bom", opts.BOMPath),
		zap.String("placement", opts.PlacementPath),
	)

	if e.store != nil {
		_, err := e.store.CreateRun(ctx, model.Run{
			ID:            rc.ID,
			Vendor:        opts.Vendor,
			JobID:         opts.JobID,
			CustomerID:    opts.CustomerID,
			BOMFile:       opts.BOMPath,
			PlacementFile: opts.PlacementPath,
			Status:        model.RunStatusRunning,
			CreatedAt:     rc.Started,
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
	}

	res, err := e.execute(ctx, rc, adapter, opts)
	if err == nil {
		err = e.commit(ctx, rc, opts, res)
	}
	if err != nil {
		e.fail(ctx, rc, err)
		return nil, err
	}

	e.metrics.RecordDiagnostics(opts.Vendor, res.Diagnostics)
	e.metrics.RecordRun(opts.Vendor, model.RunStatusComplete, time.Since(rc.Started))
	rc.Log.Info("pipeline: run complete",
		zap.Int("rows_out", len(res.Records)),
		zap.Int("unmatched", res.Diagnostics.UnmatchedCount),
		zap.String("artifact", res.Artifact),
		zap.Duration("elapsed", time.Since(rc.Started)),
	)
	return res, nil
}

func (e *Engine) execute(ctx context.Context, rc *RunContext, adapter vendor.Adapter, opts RunOpts) (*Result, error) {
	var (
		lines      []model.BOMLine
		placements []model.PlacementRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.track(rc, bomerr.StageReadBOM, func() error {
			var err error
			lines, err = adapter.LoadBOM(gCtx, opts.BOMPath, rc.Report)
			return stageError(err, bomerr.StageReadBOM, opts.BOMPath)
		})
	})
	g.Go(func() error {
		return e.track(rc, bomerr.StageReadPlacement, func() error {
			var err error
			placements, err = adapter.LoadPlacement(gCtx, opts.PlacementPath, rc.Report)
			return stageError(err, bomerr.StageReadPlacement, opts.PlacementPath)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var components []model.CanonicalComponentRecord
	err := e.track(rc, bomerr.StageStandardize, func() error {
		var err error
		components, err = e.standardize(ctx, rc, adapter, lines)
		return stageError(err, bomerr.StageStandardize, opts.BOMPath)
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	merged := merge.Merge(components, placements, rc.Report)
	e.stageDone(rc, bomerr.StageMerge, time.Since(start))

	return &Result{
		RunID:       rc.ID,
		Records:     merged,
		Diagnostics: rc.Report.Snapshot(),
	}, nil
}

// commit exports the merged table and records it. Either both land or
// neither does: an artifact written before a lineage failure is deleted.
func (e *Engine) commit(ctx context.Context, rc *RunContext, opts RunOpts, res *Result) error {
	var key string
	if e.sink != nil {
		key = ArtifactKey(opts.Vendor, opts.BOMPath, rc.Started)
		err := e.track(rc, bomerr.StageExport, func() error {
			uri, err := e.export(ctx, key, res.Records)
			if err != nil {
				return stageError(err, bomerr.StageExport, key)
			}
			res.Artifact = uri
			return nil
		})
		if err != nil {
			return err
		}
	}

	if e.store == nil {
		return nil
	}
	if err := e.finish(ctx, rc, res); err != nil {
		if key != "" {
			e.discard(ctx, rc, key)
			res.Artifact = ""
		}
		return err
	}
	return nil
}

// Clean runs only the BOM side of a vendor: load and standardize.
func (e *Engine) Clean(ctx context.Context, v model.Vendor, bomPath string) ([]model.CanonicalComponentRecord, model.Diagnostics, error) {
	adapter, err := e.registry.Get(v)
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	rc := NewRunContext(v)
	var lines []model.BOMLine
	err = e.track(rc, bomerr.StageReadBOM, func() error {
		var err error
		lines, err = adapter.LoadBOM(ctx, bomPath, rc.Report)
		return stageError(err, bomerr.StageReadBOM, bomPath)
	})
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	var out []model.CanonicalComponentRecord
	err = e.track(rc, bomerr.StageStandardize, func() error {
		var err error
		out, err = e.standardize(ctx, rc, adapter, lines)
		return stageError(err, bomerr.StageStandardize, bomPath)
	})
	if err != nil {
		return nil, model.Diagnostics{}, err
	}

	merge.SortComponents(out)
	rc.Report.Update(func(d *model.Diagnostics) { d.BOMRows = len(out) })
	return out, rc.Report.Snapshot(), nil
}

// standardize turns BOM lines into canonical records. Rows are independent,
// so chunks of the input are handled in parallel; output keeps input order.
func (e *Engine) standardize(ctx context.Context, rc *RunContext, adapter vendor.Adapter, lines []model.BOMLine) ([]model.CanonicalComponentRecord, error) {
	out := make([]model.CanonicalComponentRecord, len(lines))
	if len(lines) == 0 {
		return out, nil
	}
	standardized := adapter.Profile().Standardized

	chunk := (len(lines) + e.workers - 1) / e.workers
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for start := 0; start < len(lines); start += chunk {
		end := min(start+chunk, len(lines))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				out[i] = e.standardizeLine(rc, adapter, standardized, lines[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) standardizeLine(rc *RunContext, adapter vendor.Adapter, standardized bool, line model.BOMLine) model.CanonicalComponentRecord {
	value := line.Value
	if standardized {
		res := e.std.Standardize(normalize.Input{
			Category:    normalize.Categorize(line.Designator, line.Description),
			Value:       line.Value,
			Description: line.Description,
			Footprint:   line.Footprint,
			Row:         line.Row,
		})
		if res.Failure != "" && line.Value != "" {
			rc.Report.ParseFailure(model.ParseFailure{
				Designator: line.Designator,
				Field:      "value",
				Raw:        line.Value,
				Reason:     bomerr.ValueParse.String() + ": " + res.Failure,
			})
			rc.Log.Debug("pipeline: value kept raw",
				zap.String("designator", line.Designator),
				zap.String("value", line.Value),
				zap.String("reason", res.Failure),
			)
		}
		value = res.Value
	}

	return model.CanonicalComponentRecord{
		Designator:        line.Designator,
		StandardizedValue: adapter.ResolveValue(line, value, rc.Report),
		VendorPartNo:      line.VendorPartNo,
		ComponentClass:    line.ComponentClass,
		Footprint:         line.Footprint,
		Description:       line.Description,
	}
}

func (e *Engine) export(ctx context.Context, key string, recs []model.MergedRecord) (string, error) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, recs); err != nil {
		return "", err
	}
	return e.sink.Put(ctx, key, &buf)
}

func (e *Engine) finish(ctx context.Context, rc *RunContext, res *Result) error {
	return e.track(rc, bomerr.StageRecord, func() error {
		if _, err := e.store.SaveRecords(ctx, rc.ID, res.Records); err != nil {
			return eris.Wrap(err, "pipeline: save records")
		}
		diag := res.Diagnostics
		err := e.store.FinishRun(ctx, rc.ID, store.RunOutcome{
			Status:      model.RunStatusComplete,
			Artifact:    res.Artifact,
			RowsOut:     len(res.Records),
			Unmatched:   res.Diagnostics.UnmatchedCount,
			Diagnostics: &diag,
		})
		return eris.Wrap(err, "pipeline: finish run")
	})
}

// discard removes an exported artifact whose run could not be recorded.
func (e *Engine) discard(ctx context.Context, rc *RunContext, key string) {
	if err := e.sink.Delete(context.WithoutCancel(ctx), key); err != nil {
		rc.Log.Warn("pipeline: failed to discard artifact", zap.String("key", key), zap.Error(err))
		return
	}
	rc.Log.Info("pipeline: artifact discarded", zap.String("key", key))
}

// fail records a failed run. Lineage writes use a context that survives
// cancellation of the run itself.
func (e *Engine) fail(ctx context.Context, rc *RunContext, runErr error) {
	rc.Log.Error("pipeline: run failed", zap.Error(runErr))
	e.metrics.RecordRun(rc.Vendor, model.RunStatusFailed, time.Since(rc.Started))
	if e.store == nil {
		return
	}

	diag := rc.Report.Snapshot()
	err := e.store.FinishRun(context.WithoutCancel(ctx), rc.ID, store.RunOutcome{
		Status:      model.RunStatusFailed,
		Error:       runErr.Error(),
		Diagnostics: &diag,
	})
	if err != nil {
		rc.Log.Warn("pipeline: failed to record run failure", zap.Error(err))
	}
}

// track runs one stage, logging its duration and outcome.
func (e *Engine) track(rc *RunContext, stage bomerr.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if err != nil {
		e.metrics.RecordStage(rc.Vendor, string(stage), elapsed)
		rc.Log.Error("pipeline: stage failed",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return err
	}
	e.stageDone(rc, stage, elapsed)
	return nil
}

func (e *Engine) stageDone(rc *RunContext, stage bomerr.Stage, elapsed time.Duration) {
	e.metrics.RecordStage(rc.Vendor, string(stage), elapsed)
	rc.Log.Info("pipeline: stage complete",
		zap.String("stage", string(stage)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
}

// stageError tags typed failures with stage and file; other errors are
// wrapped with the same context.
func stageError(err error, stage bomerr.Stage, file string) error {
	if err == nil {
		return nil
	}
	if bomerr.KindOf(err) != 0 {
		return bomerr.WithContext(err, stage, file)
	}
	return eris.Wrapf(err, "pipeline: %s %s", stage, file)
}
