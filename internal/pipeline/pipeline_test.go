package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacificflyway/goose-resight-etl/internal/domain"
	"github.com/pacificflyway/goose-resight-etl/internal/observability"
	"github.com/pacificflyway/goose-resight-etl/internal/pipeline"
	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// --- mocks ---

type stubExtractor struct {
	tables pipeline.Tables
	err    error
}

func (s *stubExtractor) ExtractTables(_ context.Context) (pipeline.Tables, error) {
	return s.tables, s.err
}

type memWorkbooks struct {
	books map[string][]pipeline.Sheet
	fail  map[string]error
}

func (m *memWorkbooks) WriteWorkbook(name string, sheets []pipeline.Sheet) error {
	for prefix, err := range m.fail {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return err
		}
	}
	if m.books == nil {
		m.books = make(map[string][]pipeline.Sheet)
	}
	m.books[name] = sheets
	return nil
}

type memCSVs struct {
	files map[string]*table.Table
}

func (m *memCSVs) WriteCSV(name string, t *table.Table) error {
	if m.files == nil {
		m.files = make(map[string]*table.Table)
	}
	m.files[name] = t
	return nil
}

// --- fixtures ---

func eventColumns() []string {
	return []string{
		domain.FieldGlobalID, domain.FieldSiteName,
		domain.FieldObserver, domain.FieldObserverOther,
		domain.FieldSurveyDateTime, domain.FieldCreator, domain.FieldEditor,
	}
}

func pointColumns() []string {
	cols := []string{
		domain.FieldGlobalID, domain.FieldParentGlobalID,
		domain.FieldLatitude, domain.FieldLongitude,
		domain.FieldLatPrepopulated, domain.FieldLongPrepopulated,
		domain.FieldLocationDescription, domain.FieldNotes,
	}
	cols = append(cols, domain.CountColumns()...)
	return append(cols, domain.CollarFields()...)
}

func bandColumns() []string {
	return []string{
		domain.FieldGlobalID, domain.FieldParentGlobalID,
		domain.FieldSpecies, domain.FieldBandNote,
	}
}

func fixtureTables() pipeline.Tables {
	events := table.FromRows(eventColumns(), []table.Row{
		{
			domain.FieldGlobalID: "e1", domain.FieldSiteName: "Ridgefield NWR",
			domain.FieldObserver: "Other", domain.FieldObserverOther: "J. Smith",
			domain.FieldSurveyDateTime: time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC),
			domain.FieldCreator:        "field_ipad_04",
		},
		{
			domain.FieldGlobalID: "e2", domain.FieldSiteName: "Ankeny NWR",
			domain.FieldObserver:       "B. Harris",
			domain.FieldSurveyDateTime: time.Date(2025, 1, 20, 17, 0, 0, 0, time.UTC),
		},
		{
			// Outside the survey window.
			domain.FieldGlobalID: "e3", domain.FieldSiteName: "Willapa NWR",
			domain.FieldObserver:       "B. Harris",
			domain.FieldSurveyDateTime: time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC),
		},
		{
			// In window but no observation points.
			domain.FieldGlobalID: "e4", domain.FieldSiteName: "Ridgefield NWR",
			domain.FieldObserver:       "B. Harris",
			domain.FieldSurveyDateTime: time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC),
		},
	})

	points := table.FromRows(pointColumns(), []table.Row{
		{
			domain.FieldGlobalID: "p1", domain.FieldParentGlobalID: "e1",
			domain.FieldLatitude: 45.80, domain.FieldLongitude: -122.75,
			domain.FieldLatPrepopulated: 45.81, domain.FieldLongPrepopulated: -122.74,
			domain.FieldLocationDescription: "Rest Lake blind",
			domain.FieldNotes:               "large flock on the lake edge",
			"DuskyCount":                    5.0, "WuskyCount": 0.0, "CacklingCount": nil,
			"Collar1": "xc44",
		},
		{
			domain.FieldGlobalID: "p2", domain.FieldParentGlobalID: "e2",
			domain.FieldLatitude: 44.61, domain.FieldLongitude: -123.05,
			domain.FieldLocationDescription: "Pintail Marsh",
			"CacklingCount":                 12.0,
		},
		{
			// Parent is outside the window; dropped by the join.
			domain.FieldGlobalID: "p3", domain.FieldParentGlobalID: "e3",
			"DuskyCount": 2.0,
		},
		{
			// Orphan.
			domain.FieldGlobalID: "p4", domain.FieldParentGlobalID: "missing",
			"DuskyCount": 1.0,
		},
	})

	bands := table.FromRows(bandColumns(), []table.Row{
		{
			domain.FieldGlobalID: "b1", domain.FieldParentGlobalID: "e1",
			domain.FieldSpecies: "Trumpeter Swan", domain.FieldBandNote: "red neck band 9C",
		},
		{
			domain.FieldGlobalID: "b2", domain.FieldParentGlobalID: "missing",
			domain.FieldSpecies: "Tundra Swan",
		},
	})

	return pipeline.Tables{Events: events, Points: points, Bands: bands}
}

func newTestPipeline(t *testing.T, ext pipeline.Extractor) (*pipeline.Pipeline, *memWorkbooks, *memCSVs, *observability.Metrics) {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	wb := &memWorkbooks{}
	csvs := &memCSVs{}
	metrics := observability.NewMetrics()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 2, 5, 12, 0, 0, 0, time.UTC))
	opts := pipeline.Options{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, loc),
		End:   time.Date(2025, 2, 1, 0, 0, 0, 0, loc),
		Local: loc,
	}
	p := pipeline.New(ext, wb, csvs, slog.Default(), metrics, clock, opts)
	return p, wb, csvs, metrics
}

// stamp for the fake clock: 2025-02-05 12:00 UTC is 04:00 Pacific.
const testStamp = "20250205_040000"

// --- tests ---

func TestRun_EndToEnd(t *testing.T) {
	p, wb, csvs, _ := newTestPipeline(t, &stubExtractor{tables: fixtureTables()})

	require.NoError(t, p.Run(context.Background()))

	t.Run("archival dump", func(t *testing.T) {
		sheets, ok := wb.books["GooseResight_Archive_"+testStamp+".xlsx"]
		require.True(t, ok)
		require.Len(t, sheets, 3)
		assert.Equal(t, "SurveyEvents", sheets[0].Name)
		assert.Equal(t, 4, sheets[0].Table.Len(), "archive is unfiltered")

		// Localized timestamps are rendered as text, raw ones kept.
		r := sheets[0].Table.Rows()[0]
		assert.Equal(t, "01/15/2025 10:30 PST-0800", r[domain.FieldSurveyDateTime+domain.LocalSuffix])
		assert.IsType(t, time.Time{}, r[domain.FieldSurveyDateTime])
	})

	t.Run("migratory birds CSV", func(t *testing.T) {
		out, ok := csvs.files["GooseResight_MigratoryBirds_"+testStamp+".csv"]
		require.True(t, ok)
		require.Equal(t, 2, out.Len())

		cols := out.Columns()
		assert.Equal(t, "State", cols[0])
		assert.Equal(t, "SurveyDate", cols[1])
		assert.Equal(t, "CoordinateSource", cols[2])
		assert.Contains(t, cols, "Collar1")
		assert.Contains(t, cols, "Collar30")
		assert.Equal(t, "IndividualCount", cols[len(cols)-1])

		var ridgefield table.Row
		for _, r := range out.Rows() {
			if r["SiteName"] == "Ridgefield NWR" {
				ridgefield = r
			}
		}
		require.NotNil(t, ridgefield)
		assert.Equal(t, "WA", ridgefield["State"])
		assert.Equal(t, "prepopulated", ridgefield["CoordinateSource"])
		assert.Equal(t, 45.81, ridgefield["DecimalLatitude"], "prepopulated wins at prepopulated sites")
		assert.Equal(t, -122.74, ridgefield["DecimalLongitude"])
		assert.Equal(t, "J. Smith", ridgefield["RecordedBy"], "Other routes to free text")
		assert.Equal(t, "XC44", ridgefield["Collar1"], "collar codes uppercased")
		assert.Equal(t, 5.0, ridgefield["IndividualCount"])
	})

	t.Run("incidental bands CSV", func(t *testing.T) {
		out, ok := csvs.files["GooseResight_IncidentalBands_"+testStamp+".csv"]
		require.True(t, ok)
		require.Equal(t, 1, out.Len(), "orphan band records are dropped")
		r := out.Rows()[0]
		assert.Equal(t, "Ridgefield NWR", r["SiteName"])
		assert.Equal(t, "J. Smith", r["RecordedBy"])
		assert.Equal(t, "Trumpeter Swan", r["Species"])
		assert.Equal(t, "red neck band 9C", r["BandNote"])
	})

	t.Run("one bundle per site", func(t *testing.T) {
		require.Contains(t, wb.books, "GooseResight_Ridgefield_NWR_"+testStamp+".xlsx")
		require.Contains(t, wb.books, "GooseResight_Ankeny_NWR_"+testStamp+".xlsx")
		assert.Len(t, wb.books, 3, "archive plus two site bundles")
	})

	t.Run("ridgefield bundle contents", func(t *testing.T) {
		sheets := wb.books["GooseResight_Ridgefield_NWR_"+testStamp+".xlsx"]
		require.Len(t, sheets, 3)
		assert.Equal(t, "FlockCountsLong", sheets[0].Name)
		assert.Equal(t, "FlockCountsWide", sheets[1].Name)
		assert.Equal(t, "RefugeObservations", sheets[2].Name)

		long := sheets[0].Table
		require.Equal(t, 1, long.Len(), "only the non-zero Dusky count pivots")
		r := long.Rows()[0]
		assert.Equal(t, "e1", r["EventID"])
		assert.Equal(t, "p1", r["OccurrenceID"])
		assert.Equal(t, "Dusky", r["CommonName"])
		assert.Equal(t, "Branta canadensis occidentalis", r["ScientificName"])
		assert.Equal(t, "DCGO", r["TaxonCode"])
		assert.Equal(t, "175015", r["TSN"])
		assert.Equal(t, 5.0, r["Count"])
		assert.Equal(t, "Ridgefield NWR Rest Lake blind", r["Locality"])
		assert.Equal(t, "large flock on the lake edge", r["OccurrenceRemarks"])

		wide := sheets[1].Table
		require.Equal(t, 1, wide.Len())
		assert.Equal(t, 5.0, wide.Rows()[0]["DuskyCount"])
		assert.Len(t, wide.Columns(), 4+17+3)

		refuge := sheets[2].Table
		require.Equal(t, 1, refuge.Len())
		rr := refuge.Rows()[0]
		assert.Equal(t, "p1", rr["OccurrenceID"])
		assert.Equal(t, "XC44", rr["Collar1"])
		assert.Equal(t, 5.0, rr["IndividualCount"])
		assert.Equal(t, 45.81, rr["DecimalLatitude"])
	})
}

func TestRun_ExtractFailureIsFatal(t *testing.T) {
	p, wb, csvs, _ := newTestPipeline(t, &stubExtractor{err: errors.New("feature service unreachable")})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, wb.books, "nothing is written on acquisition failure")
	assert.Empty(t, csvs.files)
}

func TestRun_LocalizedInputIsFatal(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	tables := fixtureTables()
	tables.Events.Rows()[0][domain.FieldSurveyDateTime] = time.Date(2025, 1, 15, 10, 30, 0, 0, loc)
	p, _, _, _ := newTestPipeline(t, &stubExtractor{tables: tables})

	runErr := p.Run(context.Background())
	require.ErrorIs(t, runErr, table.ErrAlreadyLocalized)
}

func TestRun_ArchiveFailureIsBestEffort(t *testing.T) {
	p, wb, csvs, _ := newTestPipeline(t, &stubExtractor{tables: fixtureTables()})
	wb.fail = map[string]error{"GooseResight_Archive_": errors.New("disk full")}

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, wb.books, 2, "site bundles still written")
	assert.Len(t, csvs.files, 2)
}

func TestRun_EmptyExtractionProducesEmptyArtifacts(t *testing.T) {
	events := table.New(eventColumns()...)
	events.MarkTimestamps(domain.FieldSurveyDateTime)
	points := table.New(pointColumns()...)
	bands := table.New(bandColumns()...)
	p, wb, csvs, _ := newTestPipeline(t, &stubExtractor{
		tables: pipeline.Tables{Events: events, Points: points, Bands: bands},
	})

	require.NoError(t, p.Run(context.Background()))

	require.Contains(t, wb.books, "GooseResight_Archive_"+testStamp+".xlsx")
	assert.Len(t, wb.books, 1, "no site bundles without rows")

	migratory, ok := csvs.files["GooseResight_MigratoryBirds_"+testStamp+".csv"]
	require.True(t, ok)
	assert.Equal(t, 0, migratory.Len())
	assert.Contains(t, migratory.Columns(), "SurveyDate", "localized column projected even with zero rows")

	bandsOut, ok := csvs.files["GooseResight_IncidentalBands_"+testStamp+".csv"]
	require.True(t, ok)
	assert.Equal(t, 0, bandsOut.Len())
}

func TestRun_OutOfWindowPointsAreNotJoinDrops(t *testing.T) {
	p, _, _, metrics := newTestPipeline(t, &stubExtractor{tables: fixtureTables()})

	require.NoError(t, p.Run(context.Background()))

	right := testutil.ToFloat64(metrics.JoinDrops.WithLabelValues("events_points", "right"))
	assert.Equal(t, 1.0, right, "only the orphan point counts as a drop")

	left := testutil.ToFloat64(metrics.JoinDrops.WithLabelValues("events_points", "left"))
	assert.Equal(t, 1.0, left, "an in-window event without points is still a drop")
}
