package reader

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter rune   // default ','
	Encoding  string // empty = sniff
}

// ReadCSV reads a delimited file, decoding its charset first. Records may
// have varying field counts.
func ReadCSV(path string, opts CSVOptions) ([][]string, error) {
	text, err := ReadText(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return ParseCSV(strings.NewReader(text), opts.Delimiter)
}

// ParseCSV parses already decoded CSV text.
func ParseCSV(r io.Reader, delim rune) ([][]string, error) {
	reader := csv.NewReader(r)
	if delim != 0 {
		reader.Comma = delim
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}
