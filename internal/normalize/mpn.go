package normalize

import (
	"regexp"
	"strings"
)

var (
	markupTagRe    = regexp.MustCompile(`<[^>]+>`)
	mpnRe          = regexp.MustCompile(`^[A-Z]{2,3}\d{2,4}[A-Z0-9]{10,}`)
	footprintNumRe = regexp.MustCompile(`(\d{4})(?:_CAP)?`)
)

// mpnDelimiters end the useful part of a manufacturer value, in the order
// they are applied.
var mpnDelimiters = []string{",", "--", " ", "+", "=", "<"}

// CleanManufacturerInfo upper-cases v, strips <tags> and cuts trailing specs
// after the first delimiter. Underscores and slashes become hyphens.
func CleanManufacturerInfo(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return v
	}
	v = markupTagRe.ReplaceAllString(v, "")
	for _, d := range mpnDelimiters {
		if i := strings.Index(v, d); i >= 0 {
			v = v[:i]
		}
	}
	v = strings.NewReplacer("_", "-", "/", "-").Replace(v)
	return strings.TrimSpace(v)
}

// IsManufacturerPart matches part numbers such as GRM155R60J475ME87D: two or
// three letters, two to four digits, then at least ten alphanumerics.
func IsManufacturerPart(v string) bool {
	return mpnRe.MatchString(v)
}

// ExtractFootprintSize returns the first four-digit run of a footprint
// column ("0402_CAP" → "0402").
func ExtractFootprintSize(footprint string) string {
	m := footprintNumRe.FindStringSubmatch(footprint)
	if m == nil {
		return ""
	}
	return m[1]
}
