package normalize

import (
	"strings"
	"unicode"

	"github.com/sells-group/bom-cli/internal/model"
)

var prefixCategories = map[string]model.Category{
	"R": model.Resistor,
	"C": model.Capacitor,
	"L": model.Inductor,
}

// descriptionPatterns confirm a prefix-derived category. Matching is
// case-insensitive.
var descriptionPatterns = map[model.Category][]string{
	model.Resistor:  {"chip resistor", "array resistor"},
	model.Capacitor: {"capacitor", "mlcc"},
	model.Inductor:  {"inductor", "choke", "ferrite"},
}

// Categorize derives the category from the alphabetic prefix of the first two
// designator characters (R, C, L). A description that names a different
// category and not the prefix's own demotes the component to Other.
func Categorize(designator, description string) model.Category {
	prefix := designatorPrefix(designator)
	cat, ok := prefixCategories[prefix]
	if !ok {
		return model.Other
	}

	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" || matchesAny(desc, descriptionPatterns[cat]) {
		return cat
	}
	for other, patterns := range descriptionPatterns {
		if other != cat && matchesAny(desc, patterns) {
			return model.Other
		}
	}
	return cat
}

func designatorPrefix(designator string) string {
	var sb strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(designator) {
		if n == 2 {
			break
		}
		n++
		if unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToUpper(r))
		}
	}
	return sb.String()
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
