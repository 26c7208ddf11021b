package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Vendor identifies a factory source. Adapter selection is always explicit.
type Vendor string

const (
	VendorDME      Vendor = "dme"
	VendorKaon     Vendor = "kaon"
	VendorLandis   Vendor = "landis"
	VendorCartrack Vendor = "cartrack"
	VendorLG       Vendor = "lg"
)

// Vendors lists every supported vendor in display order.
var Vendors = []Vendor{VendorDME, VendorKaon, VendorLandis, VendorCartrack, VendorLG}

// ParseVendor converts a case-insensitive identifier into a Vendor.
func ParseVendor(s string) (Vendor, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Vendors {
		if v == known {
			return v, nil
		}
	}
	return "", eris.Errorf("unknown vendor: %q (valid: dme, kaon, landis, cartrack, lg)", s)
}
