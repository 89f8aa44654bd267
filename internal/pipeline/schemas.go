package pipeline

import (
	"github.com/pacificflyway/goose-resight-etl/internal/domain"
	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// localSurveyField is the localized survey timestamp every export keys on.
const localSurveyField = domain.FieldSurveyDateTime + domain.LocalSuffix

// Output schemas. Downstream consumers parse by column name, so the field
// sets, names, and order here are a contract.

func refugeProjection() table.Projection {
	return table.Projection{
		Fields: append(append([]string{
			domain.FieldPointGlobalID,
			domain.FieldEventGlobalID,
			domain.FieldLocation,
			localSurveyField,
			domain.FieldObserverText,
		}, domain.CollarPrefix+"*"),
			domain.FieldTotalGeese,
			domain.FieldLatitudeDD,
			domain.FieldLongitudeDD,
		),
		Rename: map[string]string{
			domain.FieldPointGlobalID: "OccurrenceID",
			domain.FieldEventGlobalID: "EventID",
			domain.FieldLocation:      "Locality",
			localSurveyField:          "EventDate",
			domain.FieldObserverText:  "RecordedBy",
			domain.FieldTotalGeese:    "IndividualCount",
			domain.FieldLatitudeDD:    "DecimalLatitude",
			domain.FieldLongitudeDD:   "DecimalLongitude",
		},
	}
}

func migratoryProjection() table.Projection {
	return table.Projection{
		Fields: append(append([]string{
			domain.FieldState,
			localSurveyField,
			domain.FieldCoordinateSource,
			domain.FieldLatitudeDD,
			domain.FieldLongitudeDD,
			domain.FieldObserverText,
			domain.FieldSiteName,
			domain.FieldLocationDescription,
		}, domain.CollarPrefix+"*"),
			domain.FieldTotalGeese,
		),
		Rename: map[string]string{
			localSurveyField:         "SurveyDate",
			domain.FieldLatitudeDD:   "DecimalLatitude",
			domain.FieldLongitudeDD:  "DecimalLongitude",
			domain.FieldObserverText: "RecordedBy",
			domain.FieldTotalGeese:   "IndividualCount",
		},
	}
}

func longFlockProjection() table.Projection {
	return table.Projection{
		Fields: []string{
			domain.FieldEventGlobalID,
			domain.FieldPointGlobalID,
			domain.FieldLocation,
			localSurveyField,
			domain.FieldCommonName,
			domain.FieldScientificName,
			domain.FieldTaxonCode,
			domain.FieldTSN,
			domain.FieldCount,
			domain.FieldLatitudeDD,
			domain.FieldLongitudeDD,
			domain.FieldNotes,
		},
		Rename: map[string]string{
			domain.FieldEventGlobalID: "EventID",
			domain.FieldPointGlobalID: "OccurrenceID",
			domain.FieldLocation:      "Locality",
			localSurveyField:          "EventDate",
			domain.FieldLatitudeDD:    "DecimalLatitude",
			domain.FieldLongitudeDD:   "DecimalLongitude",
			domain.FieldNotes:         "OccurrenceRemarks",
		},
	}
}

func wideFlockProjection() table.Projection {
	fields := []string{
		domain.FieldEventGlobalID,
		domain.FieldPointGlobalID,
		domain.FieldLocation,
		localSurveyField,
	}
	fields = append(fields, domain.CountColumns()...)
	fields = append(fields,
		domain.FieldLatitudeDD,
		domain.FieldLongitudeDD,
		domain.FieldNotes,
	)
	return table.Projection{
		Fields: fields,
		Rename: map[string]string{
			domain.FieldEventGlobalID: "EventID",
			domain.FieldPointGlobalID: "OccurrenceID",
			domain.FieldLocation:      "Locality",
			localSurveyField:          "EventDate",
			domain.FieldLatitudeDD:    "DecimalLatitude",
			domain.FieldLongitudeDD:   "DecimalLongitude",
			domain.FieldNotes:         "OccurrenceRemarks",
		},
	}
}

func bandsProjection() table.Projection {
	return table.Projection{
		Fields: []string{
			domain.FieldSiteName,
			localSurveyField,
			domain.FieldObserverText,
			domain.FieldSpecies,
			domain.FieldBandNote,
		},
		Rename: map[string]string{
			localSurveyField:         "SurveyDate",
			domain.FieldObserverText: "RecordedBy",
		},
	}
}
