// Package reader loads vendor files (XLSX workbooks, delimited or positional
// text exports, HTML tables) into plain string grids.
package reader

import (
	"path/filepath"
	"strings"

	"github.com/sells-group/bom-cli/internal/bomerr"
)

// FileType is the container format of an input file.
type FileType string

const (
	TypeXLSX FileType = "xlsx"
	TypeCSV  FileType = "csv"
	TypeText FileType = "text"
	TypeHTML FileType = "html"
)

var extTypes = map[string]FileType{
	".xlsx": TypeXLSX,
	".xlsm": TypeXLSX,
	".csv":  TypeCSV,
	".txt":  TypeText,
	".pos":  TypeText,
	".prn":  TypeText,
	".htm":  TypeHTML,
	".html": TypeHTML,
}

// DetectType maps a file extension to a FileType.
func DetectType(path string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extTypes[ext]; ok {
		return t, nil
	}
	return "", bomerr.Newf(bomerr.UnsupportedFileType, "unrecognized extension %q", ext)
}

// Expect checks that path has one of the allowed file types.
func Expect(path string, allowed ...FileType) (FileType, error) {
	t, err := DetectType(path)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if t == a {
			return t, nil
		}
	}
	return "", bomerr.Newf(bomerr.UnsupportedFileType, "%s file not accepted here (want %v)", t, allowed)
}
