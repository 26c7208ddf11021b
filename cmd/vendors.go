package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/bom-cli/internal/reader"
	"github.com/sells-group/bom-cli/internal/vendor"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List supported vendors and the files they accept",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatVendors(os.Stdout, newRegistry().All())
		return nil
	},
}

// formatVendors writes a tabular list of adapter profiles to w.
func formatVendors(out io.Writer, adapters []vendor.Adapter) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VENDOR\tBOM\tPLACEMENT\tHEADER MARKERS\tSTANDARDIZED")
	_, _ = fmt.Fprintln(w, "------\t---\t---------\t--------------\t------------")

	for _, a := range adapters {
		p := a.Profile()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			p.Vendor,
			joinTypes(p.BOMTypes),
			joinTypes(p.PlacementTypes),
			strings.Join(p.HeaderMarkers, ", "),
			p.Standardized,
		)
	}
	_ = w.Flush()
}

func joinTypes(types []reader.FileType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(vendorsCmd)
}
