package model

import (
	"sort"
	"sync"
)

// Collision describes a designator claimed by more than one row.
type Collision struct {
	Designator string   `json:"designator" yaml:"designator"`
	Kept       string   `json:"kept" yaml:"kept"`
	Discarded  []string `json:"discarded" yaml:"discarded"`
}

// ParseFailure records a value that fell back to its raw form.
type ParseFailure struct {
	Designator string `json:"designator" yaml:"designator"`
	Field      string `json:"field" yaml:"field"`
	Raw        string `json:"raw" yaml:"raw"`
	Reason     string `json:"reason" yaml:"reason"`
}

// Diagnostics is the structured report returned with every merged table.
type Diagnostics struct {
	BOMRows              int            `json:"bom_rows" yaml:"bom_rows"`
	PlacementRows        int            `json:"placement_rows" yaml:"placement_rows"`
	MergedRows           int            `json:"merged_rows" yaml:"merged_rows"`
	Excluded             map[string]int `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Fallbacks            map[string]int `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	UnmatchedCount       int            `json:"unmatched_count" yaml:"unmatched_count"`
	UnmatchedDesignators []string       `json:"unmatched_designators,omitempty" yaml:"unmatched_designators,omitempty"`
	UnusedPlacementCount int            `json:"unused_placement_count" yaml:"unused_placement_count"`
	Collisions           []Collision    `json:"collisions,omitempty" yaml:"collisions,omitempty"`
	PlacementDuplicates  []string       `json:"placement_duplicates,omitempty" yaml:"placement_duplicates,omitempty"`
	ParseFailures        []ParseFailure `json:"parse_failures,omitempty" yaml:"parse_failures,omitempty"`
}

// Report collects diagnostics for a single run. It is safe for concurrent use
// by row workers. Recording into a nil *Report is a no-op.
type Report struct {
	mu sync.Mutex
	d  Diagnostics
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{d: Diagnostics{
		Excluded:  make(map[string]int),
		Fallbacks: make(map[string]int),
	}}
}

// Exclude counts a dropped row under reason.
func (r *Report) Exclude(reason string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.d.Excluded[reason]++
	r.mu.Unlock()
}

// Fallback counts an applied value fallback rule.
func (r *Report) Fallback(rule string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.d.Fallbacks[rule]++
	r.mu.Unlock()
}

// ParseFailure records a value kept in raw form.
func (r *Report) ParseFailure(f ParseFailure) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.d.ParseFailures = append(r.d.ParseFailures, f)
	r.mu.Unlock()
}

// Update applies fn to the diagnostics under the report lock.
func (r *Report) Update(fn func(d *Diagnostics)) {
	if r == nil {
		return
	}
	r.mu.Lock()
	fn(&r.d)
	r.mu.Unlock()
}

// Snapshot returns a copy of the collected diagnostics with list fields in
// deterministic order. A nil report yields zero diagnostics.
func (r *Report) Snapshot() Diagnostics {
	if r == nil {
		return Diagnostics{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.d
	out.Excluded = copyCounts(r.d.Excluded)
	out.Fallbacks = copyCounts(r.d.Fallbacks)
	out.UnmatchedDesignators = append([]string(nil), r.d.UnmatchedDesignators...)
	out.PlacementDuplicates = append([]string(nil), r.d.PlacementDuplicates...)
	out.Collisions = append([]Collision(nil), r.d.Collisions...)
	out.ParseFailures = append([]ParseFailure(nil), r.d.ParseFailures...)
	sort.SliceStable(out.ParseFailures, func(i, j int) bool {
		a, b := out.ParseFailures[i], out.ParseFailures[j]
		if a.Designator != b.Designator {
			return a.Designator < b.Designator
		}
		return a.Field < b.Field
	})
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
