package normalize

import (
	"strings"

	"github.com/sells-group/bom-cli/internal/model"
)

// DefaultMinConfidence is the lowest pattern-match confidence accepted when
// an attribute is taken from elsewhere in the row.
const DefaultMinConfidence = 0.8

// Input is one BOM value with its row context.
type Input struct {
	Category    model.Category
	Value       string
	Description string
	Footprint   string
	// Row, when set, is searched by the pattern matcher for attributes the
	// value, description and footprint column do not carry.
	Row model.RawRow
}

// Result is the outcome of standardizing one value.
type Result struct {
	Value            string
	Parsed           model.ParsedValue
	ManufacturerPart bool
	// Failure is set when the raw value was passed through because no
	// magnitude could be parsed.
	Failure string
}

// Standardizer produces canonical value strings.
type Standardizer struct {
	matcher       *Matcher
	minConfidence float64
}

// NewStandardizer returns a standardizer backed by the default matcher.
func NewStandardizer() *Standardizer {
	return &Standardizer{matcher: NewMatcher(), minConfidence: DefaultMinConfidence}
}

// Standardize formats a resistor as {magnitude}{unit}[-{footprint}], a
// capacitor as {magnitude}{unit}[-{voltage}V][-{footprint}] and an inductor
// as {magnitude}{unit}[-{current}A][-{footprint}]. Manufacturer part numbers
// are cleaned and get only the footprint suffix. Other components and
// unparseable values are returned unchanged.
func (s *Standardizer) Standardize(in Input) Result {
	raw := strings.TrimSpace(in.Value)
	if in.Category == model.Other {
		return Result{Value: raw}
	}

	if cleaned := CleanManufacturerInfo(raw); IsManufacturerPart(cleaned) {
		out := cleaned
		size := ExtractFootprintSize(in.Footprint)
		if size != "" {
			out += "-" + size
		}
		return Result{Value: out, Parsed: model.ParsedValue{Footprint: size}, ManufacturerPart: true}
	}

	tokens := Tokenize(raw)
	mag, unit := FindValueAndUnit(tokens, in.Category)
	if mag == "" {
		return Result{Value: raw, Failure: "no magnitude with a " + in.Category.String() + " unit"}
	}

	descTokens := Tokenize(in.Description)
	pv := model.ParsedValue{
		Magnitude: mag,
		Unit:      unit,
		Footprint: findFootprint(tokens, in.Footprint),
		Tolerance: firstNonEmpty(findTolerance(tokens), findTolerance(descTokens)),
	}
	if pv.Footprint == "" {
		if m, ok := s.matcher.FindFootprint(in.Row); ok {
			pv.Footprint = m.Value
		}
	}

	parts := []string{mag + unit}
	switch in.Category {
	case model.Capacitor:
		pv.Voltage = firstNonEmpty(findVoltage(tokens), findVoltage(descTokens))
		if pv.Voltage == "" {
			pv.Voltage = s.fromRow(in.Row, model.AttrVoltage)
		}
		if pv.Voltage != "" {
			parts = append(parts, pv.Voltage+"V")
		}
	case model.Inductor:
		pv.Current = firstNonEmpty(findCurrent(tokens), findCurrent(descTokens))
		if pv.Current == "" {
			pv.Current = s.fromRow(in.Row, model.AttrCurrent)
		}
		if pv.Current != "" {
			parts = append(parts, pv.Current+"A")
		}
	}
	if pv.Footprint != "" {
		parts = append(parts, pv.Footprint)
	}

	return Result{Value: strings.Join(parts, "-"), Parsed: pv}
}

func (s *Standardizer) fromRow(row model.RawRow, kind model.AttributeKind) string {
	m, ok := s.matcher.Best(row, kind)
	if !ok || m.Confidence < s.minConfidence {
		return ""
	}
	return m.Value
}

var defaultStandardizer = NewStandardizer()

// Standardize is a convenience wrapper for values without row context.
func Standardize(cat model.Category, value, description, footprint string) string {
	return defaultStandardizer.Standardize(Input{
		Category:    cat,
		Value:       value,
		Description: description,
		Footprint:   footprint,
	}).Value
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
