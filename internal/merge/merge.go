// Package merge joins standardized BOM records to pick-and-place records on
// the designator key.
package merge

import (
	"strings"

	"github.com/sells-group/bom-cli/internal/model"
)

// Merge attaches placement coordinates to each BOM record. Keys on both
// sides are trimmed before lookup. BOM records without a placement row are
// kept with nil coordinates; placement rows without a BOM record are
// dropped. Duplicate keys resolve last-write-wins and are reported to rep.
// The result is sorted by designator in natural order and does not depend
// on input order beyond the last-write-wins rule.
func Merge(bom []model.CanonicalComponentRecord, placements []model.PlacementRecord, rep *model.Report) []model.MergedRecord {
	byKey, dupPlacements := indexPlacements(placements)
	records, collisions := dedupeBOM(bom)

	used := make(map[string]bool, len(byKey))
	var unmatched []string
	out := make([]model.MergedRecord, 0, len(records))
	for _, rec := range records {
		m := model.MergedRecord{
			Designator:     rec.Designator,
			Value:          rec.StandardizedValue,
			VendorPartNo:   rec.VendorPartNo,
			ComponentClass: rec.ComponentClass,
			Footprint:      rec.Footprint,
			Description:    rec.Description,
		}
		if p, ok := byKey[rec.Designator]; ok {
			used[rec.Designator] = true
			x, y, rot := p.X, p.Y, p.Rotation
			m.X, m.Y, m.Rotation = &x, &y, &rot
			m.Layer = p.Layer
			m.DeviceType = p.DeviceType
		} else {
			unmatched = append(unmatched, rec.Designator)
		}
		out = append(out, m)
	}
	SortRecords(out)
	sortNatural(unmatched)

	rep.Update(func(d *model.Diagnostics) {
		d.BOMRows = len(bom)
		d.PlacementRows = len(placements)
		d.MergedRows = len(out)
		d.UnmatchedCount = len(unmatched)
		d.UnmatchedDesignators = unmatched
		d.UnusedPlacementCount = len(byKey) - len(used)
		d.Collisions = collisions
		d.PlacementDuplicates = dupPlacements
	})
	return out
}

// indexPlacements maps trimmed designators to their last placement row and
// lists the keys seen more than once.
func indexPlacements(placements []model.PlacementRecord) (map[string]model.PlacementRecord, []string) {
	byKey := make(map[string]model.PlacementRecord, len(placements))
	seen := make(map[string]int, len(placements))
	for _, p := range placements {
		k := strings.TrimSpace(p.Designator)
		p.Designator = k
		byKey[k] = p
		seen[k]++
	}
	var dups []string
	for k, n := range seen {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sortNatural(dups)
	return byKey, dups
}

// dedupeBOM keeps the last record per trimmed designator, in first-seen
// position, and describes each collision.
func dedupeBOM(bom []model.CanonicalComponentRecord) ([]model.CanonicalComponentRecord, []model.Collision) {
	pos := make(map[string]int, len(bom))
	discarded := make(map[string][]string)
	out := make([]model.CanonicalComponentRecord, 0, len(bom))
	for _, rec := range bom {
		rec.Designator = strings.TrimSpace(rec.Designator)
		if i, ok := pos[rec.Designator]; ok {
			discarded[rec.Designator] = append(discarded[rec.Designator], out[i].StandardizedValue)
			out[i] = rec
			continue
		}
		pos[rec.Designator] = len(out)
		out = append(out, rec)
	}
	if len(discarded) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(discarded))
	for k := range discarded {
		keys = append(keys, k)
	}
	sortNatural(keys)
	collisions := make([]model.Collision, 0, len(keys))
	for _, k := range keys {
		collisions = append(collisions, model.Collision{
			Designator: k,
			Kept:       out[pos[k]].StandardizedValue,
			Discarded:  discarded[k],
		})
	}
	return out, collisions
}
