package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bom-cli/internal/model"
)

// WriteReport renders diagnostics as "json" or "yaml".
func WriteReport(w io.Writer, d model.Diagnostics, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(d), "pipeline: encode json report")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return eris.Wrap(err, "pipeline: encode yaml report")
		}
		return eris.Wrap(enc.Close(), "pipeline: close yaml encoder")
	default:
		return eris.Errorf("pipeline: unknown report format %q (valid: json, yaml)", format)
	}
}

// FormatSummary generates a short human-readable summary of a run.
func FormatSummary(res *Result) string {
	var b strings.Builder
	d := res.Diagnostics

	fmt.Fprintf(&b, "Run %s\n", res.RunID)
	if res.Artifact != "" {
		fmt.Fprintf(&b, "Artifact: %s\n", res.Artifact)
	}
	fmt.Fprintf(&b, "Rows: %d bom, %d placement, %d merged\n", d.BOMRows, d.PlacementRows, d.MergedRows)
	fmt.Fprintf(&b, "Unmatched designators: %d\n", d.UnmatchedCount)
	if d.UnusedPlacementCount > 0 {
		fmt.Fprintf(&b, "Unused placement rows: %d\n", d.UnusedPlacementCount)
	}
	writeCounts(&b, "Excluded", d.Excluded)
	writeCounts(&b, "Fallbacks", d.Fallbacks)
	if len(d.Collisions) > 0 {
		fmt.Fprintf(&b, "Designator collisions: %d\n", len(d.Collisions))
		for _, c := range d.Collisions {
			fmt.Fprintf(&b, "  %s: kept %q, discarded %q\n", c.Designator, c.Kept, c.Discarded)
		}
	}
	if len(d.ParseFailures) > 0 {
		fmt.Fprintf(&b, "Parse failures: %d\n", len(d.ParseFailures))
	}
	return b.String()
}

func writeCounts(b *strings.Builder, title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %d\n", k, m[k])
	}
}
