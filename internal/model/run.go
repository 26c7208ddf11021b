package model

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the lineage record of one pipeline invocation: which files went in,
// which artifact came out, and for which job and customer.
type Run struct {
	ID            string       `json:"id"`
	Vendor        Vendor       `json:"vendor"`
	JobID         string       `json:"job_id,omitempty"`
	CustomerID    string       `json:"customer_id,omitempty"`
	BOMFile       string       `json:"bom_file"`
	PlacementFile string       `json:"placement_file,omitempty"`
	Artifact      string       `json:"artifact,omitempty"`
	Status        RunStatus    `json:"status"`
	RowsOut       int          `json:"rows_out"`
	Unmatched     int          `json:"unmatched"`
	Error         string       `json:"error,omitempty"`
	Diagnostics   *Diagnostics `json:"diagnostics,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty"`
}
