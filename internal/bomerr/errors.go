// Package bomerr defines the typed failures raised while reading, cleaning,
// and merging vendor BOM and placement files.
package bomerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// HeaderNotFound means no row within the scan bound carried a marker cell.
	HeaderNotFound Kind = iota + 1
	// UnsupportedFileType means the extension or content is not readable by the adapter.
	UnsupportedFileType
	// EncodingDetection means text could not be decoded even after charset sniffing.
	EncodingDetection
	// SchemaMismatch means a required logical column is absent after mapping.
	SchemaMismatch
	// MergeKeyCollision is advisory: a designator survived the explode step twice.
	MergeKeyCollision
	// ValueParse is advisory and per-cell: the raw value was kept unchanged.
	ValueParse
)

func (k Kind) String() string {
	switch k {
	case HeaderNotFound:
		return "header_not_found"
	case UnsupportedFileType:
		return "unsupported_file_type"
	case EncodingDetection:
		return "encoding_detection"
	case SchemaMismatch:
		return "schema_mismatch"
	case MergeKeyCollision:
		return "merge_key_collision"
	case ValueParse:
		return "value_parse"
	default:
		return "unknown"
	}
}

// Fatal reports whether a failure of this kind aborts a run.
func (k Kind) Fatal() bool {
	switch k {
	case MergeKeyCollision, ValueParse:
		return false
	default:
		return true
	}
}

// Stage names the pipeline step that produced a failure.
type Stage string

const (
	StageReadBOM       Stage = "read_bom"
	StageReadPlacement Stage = "read_placement"
	StageStandardize   Stage = "standardize"
	StageMerge         Stage = "merge"
	StageExport        Stage = "export"
	StageRecord        Stage = "record"
)

// Error is the failure payload of a pipeline stage.
type Error struct {
	Kind   Kind
	Stage  Stage
	File   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Stage != "" {
		fmt.Fprintf(&b, " [%s]", e.Stage)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " %s", e.File)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf builds an Error of the given kind with a formatted detail.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(err error, kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// HeaderNotFoundf reports a failed header scan.
func HeaderNotFoundf(scanned int, markers []string) *Error {
	return Newf(HeaderNotFound, "no row within the first %d contains any of %q", scanned, markers)
}

// MissingColumns reports required columns absent after mapping.
func MissingColumns(cols []string) *Error {
	return Newf(SchemaMismatch, "missing required columns %q", cols)
}

// WithContext returns a copy of err annotated with stage and file, keeping
// values already set closer to the failure. Errors that are not *Error are
// returned untouched.
func WithContext(err error, stage Stage, file string) error {
	var be *Error
	if !errors.As(err, &be) {
		return err
	}
	cp := *be
	if cp.Stage == "" {
		cp.Stage = stage
	}
	if cp.File == "" {
		cp.File = file
	}
	return &cp
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == k
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
