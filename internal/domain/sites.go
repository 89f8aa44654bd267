package domain

// Jurisdiction membership for the migratory-birds extract. A site in neither
// set gets no State assigned; that is expected for ad-hoc entries, not an
// error.
var (
	washingtonSites = map[string]bool{
		"Ridgefield NWR":          true,
		"Willapa NWR":             true,
		"Julia Butler Hansen NWR": true,
		"Shillapoo Wildlife Area": true,
		"Vancouver Lowlands":      true,
	}
	oregonSites = map[string]bool{
		"Ankeny NWR":                  true,
		"Baskett Slough NWR":          true,
		"William L. Finley NWR":       true,
		"Fern Ridge Wildlife Area":    true,
		"Sauvie Island Wildlife Area": true,
	}
)

// prepopulatedSites survey from fixed blinds whose point coordinates are
// prepopulated on the form; the prepopulated value wins when present.
var prepopulatedSites = map[string]bool{
	"Ridgefield NWR":        true,
	"Ankeny NWR":            true,
	"Baskett Slough NWR":    true,
	"William L. Finley NWR": true,
}

// StateForSite returns the two-letter jurisdiction code for a site, or
// ok=false when the site is in neither membership set.
func StateForSite(site string) (string, bool) {
	switch {
	case washingtonSites[site]:
		return "WA", true
	case oregonSites[site]:
		return "OR", true
	default:
		return "", false
	}
}

// HasPrepopulatedCoordinates reports whether a site's observation points
// carry prepopulated coordinates.
func HasPrepopulatedCoordinates(site string) bool {
	return prepopulatedSites[site]
}
