package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bom-cli/internal/model"
	"github.com/sells-group/bom-cli/internal/reader"
)

var bomHeader = []string{"Designator", "Value", "Vendor Part No", "Component Class", "Footprint", "Description"}

var bomCmd = &cobra.Command{
	Use:   "bom",
	Short: "Clean a vendor BOM without placement data",
	Long:  "Runs the BOM side of a vendor adapter and the value standardizer, then writes the cleaned table as an XLSX workbook.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("bom"); err != nil {
			return err
		}

		applySheetFlag(cmd)
		vendorName, _ := cmd.Flags().GetString("vendor")
		v, err := model.ParseVendor(vendorName)
		if err != nil {
			return err
		}
		bomPath, _ := cmd.Flags().GetString("bom")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cleanedPath(cfg.Export.Dir, v, bomPath)
		}

		recs, diag, err := newEngine(nil, nil, nil).Clean(ctx, v, bomPath)
		if err != nil {
			return eris.Wrap(err, "bom")
		}

		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "bom: create output dir")
		}
		if err := reader.WriteXLSX(out, "BOM", bomHeader, componentRows(recs)); err != nil {
			return eris.Wrap(err, "bom: write xlsx")
		}

		fmt.Fprintf(os.Stdout, "Wrote %d components to %s\n", len(recs), out)
		if len(diag.ParseFailures) > 0 {
			fmt.Fprintf(os.Stdout, "Values kept raw: %d\n", len(diag.ParseFailures))
		}
		return nil
	},
}

// cleanedPath names the default output: {dir}/{vendor}/{bom base}_cleaned.xlsx.
func cleanedPath(dir string, v model.Vendor, bomPath string) string {
	base := filepath.Base(bomPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, string(v), base+"_cleaned.xlsx")
}

func componentRows(recs []model.CanonicalComponentRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.Designator, r.StandardizedValue, r.VendorPartNo, r.ComponentClass, r.Footprint, r.Description,
		})
	}
	return rows
}

func init() {
	bomCmd.Flags().String("vendor", "", "vendor adapter (dme, kaon, landis, cartrack, lg)")
	bomCmd.Flags().String("bom", "", "path to the BOM file")
	bomCmd.Flags().String("sheet", "", "BOM workbook sheet by name or zero-based index (default ingest.sheet)")
	bomCmd.Flags().String("out", "", "output XLSX path (default {export.dir}/{vendor}/{name}_cleaned.xlsx)")
	_ = bomCmd.MarkFlagRequired("vendor")
	_ = bomCmd.MarkFlagRequired("bom")
	rootCmd.AddCommand(bomCmd)
}
