package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bom-cli/internal/model"
)

func TestStandardize_ResistorIdentity(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"4.7K", "10K", "1M", "100R", "0R", ".5K", "2.2M", "0.1R", "33K"} {
		t.Run(v, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, v, Standardize(model.Resistor, v, "", ""))
		})
	}
}

func TestStandardize_CapacitorWithDescriptionVoltage(t *testing.T) {
	t.Parallel()

	got := Standardize(model.Capacitor, "4.7UF", "CAP CER 4.7UF 6.3V X5R", "0402_CAP")
	assert.Equal(t, "4.7UF-6.3V-0402", got)
}

func TestStandardize_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cat  model.Category
		val  string
		desc string
		fp   string
		want string
	}{
		{"resistor footprint", model.Resistor, "10K", "", "0402", "10K-0402"},
		{"resistor lowercase", model.Resistor, "10k", "", "", "10K"},
		{"resistor default unit", model.Resistor, "100", "", "R0603", "100R-0603"},
		{"resistor invalid unit", model.Resistor, "100E", "", "", "100R"},
		{"resistor unknown suffix", model.Resistor, "10X", "", "0603", "10R-0603"},
		{"resistor bare number", model.Resistor, "47", "", "", "47R"},
		{"resistor rkm", model.Resistor, "4K7", "", "", "4.7K"},
		{"resistor with tolerance", model.Resistor, "10K 1%", "", "0201", "10K-0201"},
		{"capacitor voltage in value", model.Capacitor, "100NF/16V", "", "0402", "100NF-16V-0402"},
		{"capacitor value before desc", model.Capacitor, "1UF 10V", "25V", "", "1UF-10V"},
		{"capacitor no voltage", model.Capacitor, "22PF", "", "0201", "22PF-0201"},
		{"capacitor short unit", model.Capacitor, "10U", "6V3", "", "10UF-6.3V"},
		{"capacitor bare", model.Capacitor, "0.1", "", "", "0.1F"},
		{"inductor current", model.Inductor, "2.2UH", "Power Inductor 1.5A", "0805", "2.2UH-1.5A-0805"},
		{"inductor milliamps", model.Inductor, "10UH 300mA", "", "", "10UH-0.3A"},
		{"inductor plain", model.Inductor, "47NH", "", "0402", "47NH-0402"},
		{"other passthrough", model.Other, "STM32F103", "", "", "STM32F103"},
		{"unparseable passthrough", model.Resistor, "DNP", "", "0402", "DNP"},
		{"empty passthrough", model.Capacitor, "", "", "", ""},
		{"manufacturer part", model.Capacitor, "GRM155R60J475ME87D", "", "0402_CAP", "GRM155R60J475ME87D-0402"},
		{"manufacturer part markup", model.Capacitor, "<MURATA>grm155r60j475me87d, 4.7uF", "", "", "GRM155R60J475ME87D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Standardize(tt.cat, tt.val, tt.desc, tt.fp))
		})
	}
}

func TestStandardizer_ReportsFailure(t *testing.T) {
	t.Parallel()

	s := NewStandardizer()
	res := s.Standardize(Input{Category: model.Capacitor, Value: " see note "})
	assert.Equal(t, "see note", res.Value)
	assert.NotEmpty(t, res.Failure)
	assert.False(t, res.Parsed.Parsed())

	res = s.Standardize(Input{Category: model.Other, Value: "MCU"})
	assert.Empty(t, res.Failure)
}

func TestStandardizer_ParsedValue(t *testing.T) {
	t.Parallel()

	s := NewStandardizer()
	res := s.Standardize(Input{
		Category:    model.Capacitor,
		Value:       "10uF",
		Description: "Capacitor 10uF ±10% 25V",
		Footprint:   "C0805",
	})
	require.Empty(t, res.Failure)
	assert.Equal(t, "10UF-25V-0805", res.Value)
	assert.Equal(t, model.ParsedValue{
		Magnitude: "10",
		Unit:      "UF",
		Voltage:   "25",
		Footprint: "0805",
		Tolerance: "10",
	}, res.Parsed)
}

func TestStandardizer_UsesRowContext(t *testing.T) {
	t.Parallel()

	s := NewStandardizer()
	row := model.RowFromPairs(
		"Designator", "C3",
		"Value", "1UF",
		"Notes", "rated 35 V",
		"Package", "SMD 0603",
	)
	res := s.Standardize(Input{Category: model.Capacitor, Value: "1UF", Row: row})
	assert.Equal(t, "1UF-35V-0603", res.Value)
}

func TestStandardizer_IgnoresWeakRowMatches(t *testing.T) {
	t.Parallel()

	s := NewStandardizer()
	row := model.RowFromPairs("Value", "4.7UF", "Quantity", "10")
	res := s.Standardize(Input{Category: model.Capacitor, Value: "4.7UF", Row: row})
	assert.Equal(t, "4.7UF", res.Value)
}
