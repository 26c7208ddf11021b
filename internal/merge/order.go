package merge

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/bom-cli/internal/model"
)

// NaturalLess orders designators with numeric runs compared by value, so
// "R2" sorts before "R10". Letters compare case-insensitively; exact ties
// fall back to byte order to keep the ordering total.
func NaturalLess(a, b string) bool {
	ca, cb := splitNatural(a), splitNatural(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if isDigits(x) && isDigits(y) {
			nx, ny := parseRun(x), parseRun(y)
			if nx != ny {
				return nx < ny
			}
			continue
		}
		if c := strings.Compare(strings.ToUpper(x), strings.ToUpper(y)); c != 0 {
			return c < 0
		}
	}
	if len(ca) != len(cb) {
		return len(ca) < len(cb)
	}
	return a < b
}

// SortRecords sorts merged records by designator in natural order.
func SortRecords(recs []model.MergedRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return NaturalLess(recs[i].Designator, recs[j].Designator)
	})
}

// SortComponents sorts BOM-side records by designator in natural order.
func SortComponents(recs []model.CanonicalComponentRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return NaturalLess(recs[i].Designator, recs[j].Designator)
	})
}

func splitNatural(s string) []string {
	var (
		chunks []string
		cur    strings.Builder
		wasDig bool
	)
	for i, r := range s {
		dig := r >= '0' && r <= '9'
		if i > 0 && dig != wasDig {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
		wasDig = dig
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseRun parses a digit run. Runs too long for uint64 saturate.
func parseRun(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return ^uint64(0)
	}
	return n
}

func sortNatural(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return NaturalLess(keys[i], keys[j]) })
}
