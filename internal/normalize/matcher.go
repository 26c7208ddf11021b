package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/bom-cli/internal/model"
)

// attributeSpec holds the validation rules for one numeric attribute.
type attributeSpec struct {
	min, max float64
	common   []float64
	units    []string // longest first
	divisors map[string]float64
	prefixes []string
}

var defaultSpecs = map[model.AttributeKind]attributeSpec{
	model.AttrVoltage: {
		min:      1,
		max:      100,
		common:   []float64{1.8, 2.5, 3.3, 5, 6.3, 10, 16, 25, 35, 50, 63, 100},
		units:    []string{"VDC", "WV", "V"},
		prefixes: []string{"rated", "working", "max"},
	},
	model.AttrCurrent: {
		min:      0.001,
		max:      10,
		common:   []float64{0.1, 0.2, 0.3, 0.5, 1, 2, 3, 5},
		units:    []string{"MA", "A"},
		divisors: map[string]float64{"MA": 1000},
		prefixes: []string{"rated", "max"},
	},
	model.AttrTolerance: {
		min:      0.1,
		max:      20,
		common:   []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		units:    []string{"PERCENT", "PCT", "%"},
		prefixes: []string{"±", "+-", "tol"},
	},
}

// footprintCodes are searched in this order: metric chip sizes, imperial
// (metric-coded) sizes, then special packages.
var footprintCodes = [][]string{
	{"0201", "0402", "0603", "0805", "1206", "1210", "2010", "2512"},
	{"0603M", "1005M", "1608M", "2012M", "3216M", "3225M"},
	{"SOT23", "SOD123", "SOIC8", "QFN"},
}

// footprintFields are column names whose matches score full confidence.
var footprintFields = map[string]bool{"FOOTPRINT": true, "PACKAGE": true, "SIZE": true}

var (
	signPrefixRe = regexp.MustCompile(`^(±|\+/-|\+-)`)
	attrRKMRe    = regexp.MustCompile(`^(\d+)(V|A)(\d+)$`)
)

// Matcher finds attribute values anywhere in a row when the value column
// does not carry them.
type Matcher struct {
	specs map[model.AttributeKind]attributeSpec
}

// NewMatcher returns a matcher with the built-in voltage, current and
// tolerance rules.
func NewMatcher() *Matcher {
	return &Matcher{specs: defaultSpecs}
}

// FindAttribute scans every field of row for numbers valid for kind and
// returns the candidates ranked by confidence, highest first. Ties keep
// field order.
func (m *Matcher) FindAttribute(row model.RawRow, kind model.AttributeKind) []model.PatternMatch {
	if kind == model.AttrFootprint {
		return m.footprintMatches(row)
	}
	spec, ok := m.specs[kind]
	if !ok {
		return nil
	}

	var matches []model.PatternMatch
	for i := 0; i < row.Len(); i++ {
		field, value := row.At(i)
		words := strings.Fields(strings.ToUpper(strings.ReplaceAll(value, ",", " ")))
		for j, word := range words {
			match, ok := spec.score(words, j, word)
			if !ok {
				continue
			}
			match.SourceField = field
			match.MatchType = kind
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Confidence > matches[b].Confidence
	})
	return matches
}

// Best returns the top match for kind, if any.
func (m *Matcher) Best(row model.RawRow, kind model.AttributeKind) (model.PatternMatch, bool) {
	matches := m.FindAttribute(row, kind)
	if len(matches) == 0 {
		return model.PatternMatch{}, false
	}
	return matches[0], true
}

// FindFootprint returns the highest-confidence footprint code in row.
func (m *Matcher) FindFootprint(row model.RawRow) (model.PatternMatch, bool) {
	return m.Best(row, model.AttrFootprint)
}

func (s attributeSpec) score(words []string, j int, word string) (model.PatternMatch, bool) {
	sign := signPrefixRe.FindString(word)
	word = strings.TrimPrefix(word, sign)
	if sign == "+/-" {
		sign = "+-"
	}

	var num, rest string
	if r := attrRKMRe.FindStringSubmatch(word); r != nil {
		num, rest = r[1]+"."+r[3], r[2]
	} else if n := leadingNumberRe.FindStringSubmatch(word); n != nil {
		num, rest = n[1], n[2]
	} else {
		return model.PatternMatch{}, false
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return model.PatternMatch{}, false
	}

	unit, hasUnit := s.unitAt(rest)
	if !hasUnit && rest == "" && j+1 < len(words) {
		unit, hasUnit = s.exactUnit(words[j+1])
	}
	if d, ok := s.divisors[unit]; ok && hasUnit {
		v /= d
	}
	if v < s.min || v > s.max {
		return model.PatternMatch{}, false
	}

	confidence := 0.5
	if hasUnit {
		confidence += 0.3
	}
	if s.hasPrefix(sign, words, j) {
		confidence += 0.2
	}
	if inSet(v, s.common) {
		confidence += 0.2
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.PatternMatch{Value: formatNumber(v), Confidence: confidence}, true
}

// unitAt reports a unit at the start of rest that is not glued to further
// letters ("V", "V/X5R" and "VDC" qualify; "VOLTAGE" does not).
func (s attributeSpec) unitAt(rest string) (string, bool) {
	for _, u := range s.units {
		if !strings.HasPrefix(rest, u) {
			continue
		}
		tail := rest[len(u):]
		if tail == "" {
			return u, true
		}
		if r := []rune(tail)[0]; !unicode.IsLetter(r) {
			return u, true
		}
	}
	return "", false
}

func (s attributeSpec) exactUnit(word string) (string, bool) {
	for _, u := range s.units {
		if word == u {
			return u, true
		}
	}
	return "", false
}

func (s attributeSpec) hasPrefix(sign string, words []string, j int) bool {
	for _, p := range s.prefixes {
		if sign != "" && sign == p {
			return true
		}
		if j > 0 && strings.Contains(strings.ToLower(words[j-1]), p) {
			return true
		}
	}
	return false
}

func (m *Matcher) footprintMatches(row model.RawRow) []model.PatternMatch {
	var matches []model.PatternMatch
	for i := 0; i < row.Len(); i++ {
		field, value := row.At(i)
		up := strings.ToUpper(value)
		confidence := 0.8
		if footprintFields[strings.ToUpper(strings.TrimSpace(field))] {
			confidence = 1.0
		}
		for _, group := range footprintCodes {
			for _, code := range group {
				if containsCode(up, code) {
					matches = append(matches, model.PatternMatch{
						Value:       code,
						Confidence:  confidence,
						SourceField: field,
						MatchType:   model.AttrFootprint,
					})
				}
			}
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Confidence > matches[b].Confidence
	})
	return matches
}
