// Package normalize turns free-form component value strings into canonical
// values such as "10K-0402" or "4.7UF-6.3V-0402".
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/bom-cli/internal/model"
)

var tokenSeparators = strings.NewReplacer(
	",", " ",
	"/", " ",
	"_", " ",
	"-", " ",
	"±", " ",
)

// Tokenize splits a raw value on commas, slashes, underscores, hyphens, ±
// and whitespace, upper-casing each token. It never fails; "" yields an
// empty slice.
func Tokenize(raw string) []string {
	fields := strings.Fields(tokenSeparators.Replace(raw))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(f))
	}
	return out
}

// validUnits lists the accepted units per category. The first entry is the
// default for a bare number.
var validUnits = map[model.Category][]string{
	model.Resistor:  {"R", "K", "M"},
	model.Capacitor: {"F", "UF", "NF", "PF"},
	model.Inductor:  {"H", "UH", "NH", "MH"},
}

var shortUnits = map[model.Category]map[string]string{
	model.Capacitor: {"U": "UF", "N": "NF", "P": "PF"},
	model.Inductor:  {"U": "UH", "N": "NH", "M": "MH"},
}

// unitCleaner drops ohm spellings and maps micro signs (including the
// upper-cased Greek mu that strings.ToUpper produces) to U.
var unitCleaner = strings.NewReplacer(
	"OHMS", "",
	"OHM", "",
	"\u03a9", "",
	"\u2126", "",
	"\u039c", "U",
	"\u00b5", "U",
	"\u03bc", "U",
)

var (
	leadingNumberRe = regexp.MustCompile(`^(\d*\.?\d+)(.*)$`)
	rkmRe           = regexp.MustCompile(`^(\d+)([RKMUNPH])(\d+)$`)

	attributeSuffixRe = regexp.MustCompile(`^(%|V|VDC|WV|W|MW|A|MA)$`)
)

// canonicalUnit maps a unit suffix to the category's spelling. It returns
// ok=false when the suffix is not a unit of the category.
func canonicalUnit(suffix string, cat model.Category) (string, bool) {
	u := unitCleaner.Replace(strings.ToUpper(strings.TrimSpace(suffix)))
	if u == "" {
		return "", true
	}
	if short, ok := shortUnits[cat][u]; ok {
		u = short
	}
	for _, v := range validUnits[cat] {
		if u == v {
			return u, true
		}
	}
	return "", false
}

// FindValueAndUnit returns the first token holding a number followed by a
// unit valid for cat (or no unit at all, in which case the category default
// is used). A resistor with an unknown suffix ("100E") falls back to R;
// tolerance, voltage, power and current tokens are never taken as values.
// Bare footprint codes such as "0402" are skipped. Both results
// are empty when nothing matches.
func FindValueAndUnit(tokens []string, cat model.Category) (string, string) {
	units, ok := validUnits[cat]
	if !ok {
		return "", ""
	}
	for _, tok := range tokens {
		if m := rkmRe.FindStringSubmatch(tok); m != nil {
			if u, ok := canonicalUnit(m[2], cat); ok && u != "" {
				return m[1] + "." + m[3], u
			}
		}
		m := leadingNumberRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		mag, suffix := m[1], m[2]
		u, ok := canonicalUnit(suffix, cat)
		if !ok {
			if cat != model.Resistor || attributeSuffixRe.MatchString(suffix) {
				continue
			}
			u = ""
		}
		if u == "" {
			if isFootprintCode(mag) {
				continue
			}
			u = units[0]
		}
		return mag, u
	}
	return "", ""
}

// knownVoltages are the rated voltages recognized in capacitor values.
var knownVoltages = []float64{1.8, 2.5, 3.3, 5, 6.3, 10, 16, 25, 35, 50, 63, 100}

var (
	voltageTokenRe   = regexp.MustCompile(`^(\d*\.?\d+)(V|VDC|WV)$`)
	voltageRKMRe     = regexp.MustCompile(`^(\d+)V(\d+)$`)
	currentTokenRe   = regexp.MustCompile(`^(\d*\.?\d+)(A|MA)$`)
	toleranceTokenRe = regexp.MustCompile(`^(\d*\.?\d+)%$`)
)

// findVoltage returns the first token carrying a known rated voltage.
func findVoltage(tokens []string) string {
	for _, tok := range tokens {
		var num string
		if m := voltageTokenRe.FindStringSubmatch(tok); m != nil {
			num = m[1]
		} else if m := voltageRKMRe.FindStringSubmatch(tok); m != nil {
			num = m[1] + "." + m[2]
		} else {
			continue
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		if inSet(v, knownVoltages) {
			return formatNumber(v)
		}
	}
	return ""
}

// findCurrent returns the first token carrying a current rating, in amps.
func findCurrent(tokens []string) string {
	for _, tok := range tokens {
		m := currentTokenRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if m[2] == "MA" {
			v /= 1000
		}
		if v >= 0.001 && v <= 10 {
			return formatNumber(v)
		}
	}
	return ""
}

func findTolerance(tokens []string) string {
	for _, tok := range tokens {
		m := toleranceTokenRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= 0.1 && v <= 20 {
			return formatNumber(v)
		}
	}
	return ""
}

// footprintSizes are the chip sizes appended to passive values.
var footprintSizes = []string{"0201", "0402", "0603", "0805", "1206", "1210", "2010", "2512"}

func isFootprintCode(s string) bool {
	for _, f := range footprintSizes {
		if s == f {
			return true
		}
	}
	return false
}

// findFootprint prefers an exact size token in the footprint column, then a
// size embedded in that column, then a size token in the value itself.
func findFootprint(valueTokens []string, footprintCol string) string {
	for _, tok := range Tokenize(footprintCol) {
		if isFootprintCode(tok) {
			return tok
		}
	}
	up := strings.ToUpper(footprintCol)
	for _, f := range footprintSizes {
		if containsCode(up, f) {
			return f
		}
	}
	for _, tok := range valueTokens {
		if isFootprintCode(tok) {
			return tok
		}
	}
	return ""
}

// containsCode reports whether code occurs in s without being glued to
// further digits on a numeric edge ("0402" matches "R0402F", not "104020").
func containsCode(s, code string) bool {
	for from := 0; from <= len(s)-len(code); {
		i := strings.Index(s[from:], code)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(code)
		beforeOK := i == 0 || !isDigit(code[0]) || !isDigit(s[i-1])
		afterOK := end == len(s) || !isDigit(code[len(code)-1]) || !isDigit(s[end])
		if beforeOK && afterOK {
			return true
		}
		from = i + 1
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func inSet(v float64, set []float64) bool {
	for _, s := range set {
		if v > s-1e-9 && v < s+1e-9 {
			return true
		}
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
