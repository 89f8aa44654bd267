package domain

import (
	"fmt"

	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// Survey event layer fields.
const (
	FieldGlobalID       = "GlobalID"
	FieldSiteName       = "SiteName"
	FieldObserver       = "Observer"
	FieldObserverOther  = "ObserverOther"
	FieldSurveyDateTime = "SurveyDateTime"
	FieldCreationDate   = "CreationDate"
	FieldEditDate       = "EditDate"
	FieldCreator        = "Creator"
	FieldEditor         = "Editor"
)

// Observation point layer fields.
const (
	FieldParentGlobalID      = "ParentGlobalID"
	FieldLatitude            = "Latitude"
	FieldLongitude           = "Longitude"
	FieldLatPrepopulated     = "Latitude_Prepopulated"
	FieldLongPrepopulated    = "Longitude_Prepopulated"
	FieldLocationDescription = "LocationDescription"
	FieldNotes               = "Notes"
)

// Band record layer fields.
const (
	FieldSpecies  = "Species"
	FieldBandNote = "BandNote"
)

// Fields added by the derivation stage.
const (
	FieldObserverText     = "ObserverText"
	FieldState            = "State"
	FieldLatitudeDD       = "LatitudeDD"
	FieldLongitudeDD      = "LongitudeDD"
	FieldCoordinateSource = "CoordinateSource"
	FieldTotalGeese       = "TotalGeese"
	FieldLocation         = "Location"
)

// Long-form flock fields: the pivot emits CommonName/Count, taxonomic
// enrichment adds the remaining three.
const (
	FieldCommonName     = "CommonName"
	FieldCount          = "Count"
	FieldScientificName = "ScientificName"
	FieldTaxonCode      = "TaxonCode"
	FieldTSN            = "TSN"
)

// LocalSuffix is appended to every timestamp column by timezone
// normalization; the source column is always retained.
const LocalSuffix = "_Pacific"

// Join disambiguation suffixes for the event x point join.
const (
	EventSuffix = "_Event"
	PointSuffix = "_Point"
)

// Columns carrying the same name on both sides of the event x point join
// end up as e.g. GlobalID_Event / GlobalID_Point.
const (
	FieldEventGlobalID = FieldGlobalID + EventSuffix
	FieldPointGlobalID = FieldGlobalID + PointSuffix
)

// ArchiveDateLayout renders localized timestamps for archival sheets:
// month/day/year, 24-hour time, zone abbreviation and offset.
const ArchiveDateLayout = "01/02/2006 15:04 MST-0700"

// CollarSlots is the number of free-text collar code fields on the
// observation point form.
const CollarSlots = 30

// CollarPrefix is shared by all collar columns; "Collar*" selects them in
// projections.
const CollarPrefix = "Collar"

// CollarFields returns Collar1..Collar30 in form order.
func CollarFields() []string {
	out := make([]string, CollarSlots)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", CollarPrefix, i+1)
	}
	return out
}

// SpeciesShortNames lists the 17 goose count categories in survey-form order.
var SpeciesShortNames = []string{
	"Dusky",
	"Western",
	"Lesser",
	"Vancouver",
	"Wusky",
	"Cackling",
	"Taverners",
	"Aleutian",
	"Snow",
	"Ross",
	"WhiteFronted",
	"Tule",
	"Brant",
	"Emperor",
	"Domestic",
	"UnknownSmall",
	"UnknownLarge",
}

// CountColumns returns the 17 per-category count column names in form order.
func CountColumns() []string {
	out := make([]string, len(SpeciesShortNames))
	for i, s := range SpeciesShortNames {
		out[i] = s + "Count"
	}
	return out
}

// PivotColumns enumerates the (count column, short name) pairs for the
// wide-to-long flock reshape. The pairing is declared here rather than
// inferred from column-name suffixes.
func PivotColumns() []table.PivotColumn {
	out := make([]table.PivotColumn, len(SpeciesShortNames))
	for i, s := range SpeciesShortNames {
		out[i] = table.PivotColumn{Column: s + "Count", ShortName: s}
	}
	return out
}
