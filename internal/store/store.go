// Package store persists run lineage: which files went into a run, which
// artifact came out, and the merged records it produced.
package store

import (
	"context"

	"github.com/sells-group/bom-cli/internal/merge"
	"github.com/sells-group/bom-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Vendor model.Vendor    `json:"vendor,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RunOutcome is the final state written when a run ends.
type RunOutcome struct {
	Status      model.RunStatus
	Artifact    string
	RowsOut     int
	Unmatched   int
	Error       string
	Diagnostics *model.Diagnostics
}

// Store defines the lineage persistence interface.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, out RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Records replaces the merged records stored for a run.
	SaveRecords(ctx context.Context, runID string, recs []model.MergedRecord) (int64, error)
	ListRecords(ctx context.Context, runID string) ([]model.MergedRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// recordColumns is the column order of run_records, shared by both drivers.
var recordColumns = []string{
	"run_id", "designator", "value", "vendor_part_no", "component_class", "footprint",
	"description", "layer", "x", "y", "rotation", "device_type",
}

func recordValues(runID string, m model.MergedRecord) []any {
	return []any{
		runID, m.Designator, m.Value, m.VendorPartNo, m.ComponentClass, m.Footprint,
		m.Description, m.Layer, floatArg(m.X), floatArg(m.Y), floatArg(m.Rotation), m.DeviceType,
	}
}

// floatArg turns an unset coordinate into SQL NULL.
func floatArg(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func sortedRecords(recs []model.MergedRecord) []model.MergedRecord {
	merge.SortRecords(recs)
	return recs
}
