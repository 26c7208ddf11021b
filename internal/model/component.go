package model

// Category is the electrical class of a component, derived from its
// designator prefix.
type Category int

const (
	Other Category = iota
	Resistor
	Capacitor
	Inductor
)

func (c Category) String() string {
	switch c {
	case Resistor:
		return "resistor"
	case Capacitor:
		return "capacitor"
	case Inductor:
		return "inductor"
	default:
		return "other"
	}
}

// ParsedValue is the intermediate result of reading a raw value string.
// Magnitude keeps the source digits (e.g. "4.7", ".5") so that already
// canonical values survive unchanged.
type ParsedValue struct {
	Magnitude string
	Unit      string
	Voltage   string
	Current   string
	Footprint string
	Tolerance string
}

// Parsed reports whether a magnitude was found.
func (p ParsedValue) Parsed() bool { return p.Magnitude != "" }

// BOMLine is a cleaned, exploded BOM row before value standardization.
type BOMLine struct {
	Designator     string
	Value          string
	VendorPartNo   string
	ComponentClass string
	Description    string
	Footprint      string
	Row            RawRow
}

// CanonicalComponentRecord is the BOM-side unit of output.
type CanonicalComponentRecord struct {
	Designator        string
	StandardizedValue string
	VendorPartNo      string
	ComponentClass    string
	Footprint         string
	Description       string
}

// PlacementRecord is one pick-and-place row.
type PlacementRecord struct {
	Designator string
	X          float64
	Y          float64
	Rotation   float64
	Layer      string
	DeviceType string
}

// MergedRecord joins a BOM record with its placement. Coordinates are nil
// when the designator had no placement row.
type MergedRecord struct {
	Designator     string   `csv:"Designator" json:"designator" yaml:"designator"`
	Value          string   `csv:"Value" json:"value" yaml:"value"`
	VendorPartNo   string   `csv:"Vendor Part No" json:"vendor_part_no,omitempty" yaml:"vendor_part_no,omitempty"`
	ComponentClass string   `csv:"Component Class" json:"component_class,omitempty" yaml:"component_class,omitempty"`
	Footprint      string   `csv:"Footprint" json:"footprint,omitempty" yaml:"footprint,omitempty"`
	Description    string   `csv:"Description" json:"description,omitempty" yaml:"description,omitempty"`
	Layer          string   `csv:"Layer" json:"layer,omitempty" yaml:"layer,omitempty"`
	X              *float64 `csv:"X" json:"x" yaml:"x"`
	Y              *float64 `csv:"Y" json:"y" yaml:"y"`
	Rotation       *float64 `csv:"Rotation" json:"rotation" yaml:"rotation"`
	DeviceType     string   `csv:"Device Type" json:"device_type,omitempty" yaml:"device_type,omitempty"`
}

// Placed reports whether placement data was attached.
func (m MergedRecord) Placed() bool { return m.X != nil }

// AttributeKind names an attribute searched for by the pattern matcher.
type AttributeKind string

const (
	AttrVoltage   AttributeKind = "voltage"
	AttrCurrent   AttributeKind = "current"
	AttrTolerance AttributeKind = "tolerance"
	AttrFootprint AttributeKind = "footprint"
)

// PatternMatch is one candidate attribute value found in a row.
type PatternMatch struct {
	Value       string
	Confidence  float64
	SourceField string
	MatchType   AttributeKind
}
