package domain

import (
	"time"

	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// ObserverOtherSentinel is the pick-list value that routes the observer to
// the free-text field.
const ObserverOtherSentinel = "Other"

// ResolveObserver returns the free-text observer when the pick list says
// "Other", otherwise the pick-list selection itself.
func ResolveObserver(r table.Row) any {
	if obs, _ := r[FieldObserver].(string); obs != ObserverOtherSentinel {
		return r[FieldObserver]
	}
	return r[FieldObserverOther]
}

// ResolveState assigns the jurisdiction code from the site membership sets.
// Sites in neither set yield nil.
func ResolveState(r table.Row) any {
	site, _ := r[FieldSiteName].(string)
	if state, ok := StateForSite(site); ok {
		return state
	}
	return nil
}

// ResolveLatitude picks the exported latitude: the prepopulated pair for
// prepopulated-coordinate sites when complete, else measured. Nil when both
// are missing.
func ResolveLatitude(r table.Row) any {
	return resolveCoordinate(r, FieldLatPrepopulated, FieldLatitude)
}

// ResolveLongitude picks the exported longitude under the same precedence
// as ResolveLatitude.
func ResolveLongitude(r table.Row) any {
	return resolveCoordinate(r, FieldLongPrepopulated, FieldLongitude)
}

// ResolveCoordinateSource labels a row "prepopulated" or "measured" to match
// the pair the coordinate resolvers selected, nil when no coordinate is
// available at all.
func ResolveCoordinateSource(r table.Row) any {
	if usePrepopulated(r) {
		return "prepopulated"
	}
	_, latOK := table.AsFloat(r[FieldLatitude])
	_, longOK := table.AsFloat(r[FieldLongitude])
	if latOK || longOK {
		return "measured"
	}
	return nil
}

// usePrepopulated reports whether a row's exported coordinates come from the
// prepopulated pair: the site is in the prepopulated set and both values are
// present. A half-filled pair falls back to the measured coordinates so the
// exported latitude and longitude never mix sources.
func usePrepopulated(r table.Row) bool {
	site, _ := r[FieldSiteName].(string)
	if !HasPrepopulatedCoordinates(site) {
		return false
	}
	_, latOK := table.AsFloat(r[FieldLatPrepopulated])
	_, longOK := table.AsFloat(r[FieldLongPrepopulated])
	return latOK && longOK
}

func resolveCoordinate(r table.Row, prepopField, measuredField string) any {
	if usePrepopulated(r) {
		v, _ := table.AsFloat(r[prepopField])
		return v
	}
	if v, ok := table.AsFloat(r[measuredField]); ok {
		return v
	}
	return nil
}

// TotalGeese sums the 17 count columns, treating missing counts as zero.
func TotalGeese(r table.Row) any {
	var total float64
	for _, c := range CountColumns() {
		if v, ok := table.AsFloat(r[c]); ok {
			total += v
		}
	}
	return total
}

// ComposeLocation joins the site name and the free-text location description
// with a single space, treating a missing description as empty.
func ComposeLocation(r table.Row) any {
	site, _ := r[FieldSiteName].(string)
	desc, _ := r[FieldLocationDescription].(string)
	return site + " " + desc
}

// InDateRange builds the [start, end) predicate for the localized survey
// timestamp. Rows with no timestamp are excluded.
func InDateRange(field string, start, end time.Time) func(table.Row) bool {
	return func(r table.Row) bool {
		ts, ok := r[field].(time.Time)
		if !ok {
			return false
		}
		return !ts.Before(start) && ts.Before(end)
	}
}

// EnrichTaxonomy adds ScientificName, TaxonCode, and TSN to a long-form
// flock table by looking up each row's CommonName. Lookup misses and empty
// mapped values yield nil fields; enrichment is a pure function of the short
// name, so reapplying it changes nothing.
func EnrichTaxonomy(t *table.Table) *table.Table {
	lookup := func(pick func(TaxonomyEntry) string) func(table.Row) any {
		return func(r table.Row) any {
			short, _ := r[FieldCommonName].(string)
			e, ok := LookupTaxonomy(short)
			if !ok {
				return nil
			}
			if v := pick(e); v != "" {
				return v
			}
			return nil
		}
	}
	t = t.WithColumn(FieldScientificName, lookup(func(e TaxonomyEntry) string { return e.ScientificName }))
	t = t.WithColumn(FieldTaxonCode, lookup(func(e TaxonomyEntry) string { return e.TaxonCode }))
	t = t.WithColumn(FieldTSN, lookup(func(e TaxonomyEntry) string { return e.TSN }))
	return t
}
