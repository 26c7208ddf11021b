package pipeline

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/bom-cli/internal/model"
)

// RunContext is the state owned by one pipeline invocation. It is created
// at run start, threaded through every stage, and dropped when Run returns.
type RunContext struct {
	ID      string
	Vendor  model.Vendor
	Started time.Time
	Report  *model.Report
	Log     *zap.Logger
}

// NewRunContext allocates a run ID and a logger scoped to it.
func NewRunContext(v model.Vendor) *RunContext {
	id := uuid.New().String()
	return &RunContext{
		ID:      id,
		Vendor:  v,
		Started: time.Now().UTC(),
		Report:  model.NewReport(),
		Log: zap.L().With(
			zap.String("component", "pipeline.engine"),
			zap.String("run_id", id),
			zap.String("vendor", string(v)),
		),
	}
}
