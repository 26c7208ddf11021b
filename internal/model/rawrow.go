package model

import "strings"

// RawRow is one row of a vendor file: column names in file order mapped to
// raw cell text. A RawRow is never modified after construction; With returns
// a changed copy.
type RawRow struct {
	cols []string
	vals []string
}

// NewRawRow builds a row from a header and its cells. Missing trailing cells
// read as empty strings and surplus cells are dropped.
func NewRawRow(cols, vals []string) RawRow {
	c := make([]string, len(cols))
	copy(c, cols)
	v := make([]string, len(cols))
	copy(v, vals)
	return RawRow{cols: c, vals: v}
}

// RowFromPairs builds a row from alternating column/value arguments.
func RowFromPairs(kv ...string) RawRow {
	r := RawRow{}
	for i := 0; i+1 < len(kv); i += 2 {
		r.cols = append(r.cols, kv[i])
		r.vals = append(r.vals, kv[i+1])
	}
	return r
}

// Len returns the number of columns.
func (r RawRow) Len() int { return len(r.cols) }

// At returns the i-th column name and value.
func (r RawRow) At(i int) (string, string) {
	return r.cols[i], r.vals[i]
}

// Columns returns a copy of the column names in file order.
func (r RawRow) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Lookup returns the value of col. An exact name match wins; otherwise the
// first column whose normalized name matches is used.
func (r RawRow) Lookup(col string) (string, bool) {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i], true
		}
	}
	want := NormalizeColumn(col)
	for i, c := range r.cols {
		if NormalizeColumn(c) == want {
			return r.vals[i], true
		}
	}
	return "", false
}

// Get returns the value of col or "" when absent.
func (r RawRow) Get(col string) string {
	v, _ := r.Lookup(col)
	return v
}

// With returns a copy of r with col set to val. The column is appended when
// it does not exist yet.
func (r RawRow) With(col, val string) RawRow {
	out := NewRawRow(r.cols, r.vals)
	for i, c := range out.cols {
		if c == col {
			out.vals[i] = val
			return out
		}
	}
	out.cols = append(out.cols, col)
	out.vals = append(out.vals, val)
	return out
}

// Map returns the row as a column → value map. Duplicate column names keep
// the first value.
func (r RawRow) Map() map[string]string {
	m := make(map[string]string, len(r.cols))
	for i, c := range r.cols {
		if _, ok := m[c]; !ok {
			m[c] = r.vals[i]
		}
	}
	return m
}

// NormalizeColumn lowercases and collapses whitespace so that "Center-X",
// " center-x " and "CENTER-X" compare equal.
func NormalizeColumn(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Table is a header-mapped vendor table.
type Table struct {
	Source string
	Header []string
	Rows   []RawRow
}
