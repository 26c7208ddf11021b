package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bom-cli/internal/metrics"
	"github.com/sells-group/bom-cli/internal/model"
	"github.com/sells-group/bom-cli/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Merge a vendor BOM with its pick-and-place file",
	Long:  "Loads both files with the vendor adapter, standardizes BOM values, merges on designator, exports the merged table as CSV and records the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		applySheetFlag(cmd)
		vendorName, _ := cmd.Flags().GetString("vendor")
		v, err := model.ParseVendor(vendorName)
		if err != nil {
			return err
		}
		bomPath, _ := cmd.Flags().GetString("bom")
		placementPath, _ := cmd.Flags().GetString("placement")
		jobID, _ := cmd.Flags().GetString("job-id")
		customerID, _ := cmd.Flags().GetString("customer-id")
		reportFormat, _ := cmd.Flags().GetString("report")
		reportOut, _ := cmd.Flags().GetString("report-out")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		sink, err := initSink(ctx)
		if err != nil {
			return err
		}

		rec := metrics.NewRecorder()
		defer flushMetrics(rec)

		res, err := newEngine(sink, st, rec).Run(ctx, pipeline.RunOpts{
			Vendor:        v,
			BOMPath:       bomPath,
			PlacementPath: placementPath,
			JobID:         jobID,
			CustomerID:    customerID,
		})
		if err != nil {
			return eris.Wrap(err, "run")
		}

		fmt.Fprint(os.Stdout, pipeline.FormatSummary(res))
		if reportFormat == "" {
			return nil
		}
		return writeReportTo(reportOut, res.Diagnostics, reportFormat)
	},
}

// writeReportTo renders diagnostics to path, or stdout when path is empty.
func writeReportTo(path string, d model.Diagnostics, format string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create report file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	return pipeline.WriteReport(w, d, format)
}

func init() {
	runCmd.Flags().String("vendor", "", "vendor adapter (dme, kaon, landis, cartrack, lg)")
	runCmd.Flags().String("bom", "", "path to the BOM file")
	runCmd.Flags().String("sheet", "", "BOM workbook sheet by name or zero-based index (default ingest.sheet)")
	runCmd.Flags().String("placement", "", "path to the pick-and-place file")
	runCmd.Flags().String("job-id", "", "job identifier recorded with the run")
	runCmd.Flags().String("customer-id", "", "customer identifier recorded with the run")
	runCmd.Flags().String("report", "", "also print the diagnostics report (json, yaml)")
	runCmd.Flags().String("report-out", "", "write the diagnostics report to this file instead of stdout")
	_ = runCmd.MarkFlagRequired("vendor")
	_ = runCmd.MarkFlagRequired("bom")
	_ = runCmd.MarkFlagRequired("placement")
	rootCmd.AddCommand(runCmd)
}
