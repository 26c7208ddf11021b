package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

var dmeHeader = []string{"Designator", "Value", "1st Vendor Part No", "Component Class", "Description", "Footprint", "DNF"}

func createTestXLSX(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.Save(path))
	return path
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// dmeFixture writes a DME BOM and placement pair.
func dmeFixture(t *testing.T) (bomPath, placementPath string) {
	t.Helper()
	bomPath = createTestXLSX(t, "Widget Rev B.xlsx", [][]string{
		{"Bill of Materials", "Widget Rev B"},
		dmeHeader,
		{"R5", "10K", "RC0402FR_07", "Resistor", "Chip Resistor", "0402", ""},
		{"R8", "xyz", "P8", "Resistor", "Chip Resistor", "", ""},
		{"R1,R2", "1K", "RC0603", "Resistor", "Chip Resistor", "0603", ""},
		{"MH1", "", "", "Mechanical", "Mounting hole", "", ""},
	})
	placementPath = writeTestFile(t, "pnp.txt", `Pick and Place Locations
Designator Footprint Layer Comment Center-X Center-Y Rotation Description
R5 0402 TopLayer 10K 10.0 20.0 90 Res
R1 0603 TopLayer 1K 1.5 2.5 0 Res
U9 QFN BottomLayer MCU 30 40 180 MCU
`)
	return bomPath, placementPath
}

type failingSink struct{}

func (failingSink) Put(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", eris.New("disk full")
}

func (failingSink) Delete(_ context.Context, _ string) error {
	return nil
}
