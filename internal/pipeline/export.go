package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bom-cli/internal/model"
)

// EncodeCSV writes the merged table with a header row. Unplaced records
// leave X, Y and Rotation empty.
func EncodeCSV(w io.Writer, recs []model.MergedRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(model.MergedRecord{}); err != nil {
		return eris.Wrap(err, "pipeline: encode csv header")
	}
	if len(recs) > 0 {
		if err := enc.Encode(recs); err != nil {
			return eris.Wrap(err, "pipeline: encode csv rows")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "pipeline: flush csv")
}

// ArtifactKey names the export of a run: {vendor}/{bom base name}_{timestamp}.csv.
func ArtifactKey(v model.Vendor, bomPath string, at time.Time) string {
	base := filepath.Base(bomPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." {
		base = "bom"
	}
	return fmt.Sprintf("%s/%s_%s.csv", v, base, at.UTC().Format("20060102150405"))
}
