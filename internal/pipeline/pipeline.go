// Package pipeline orchestrates one export run: extract the three survey
// layers, normalize timezones, dump the archival workbook, filter to the
// survey window, derive fields, join, reshape, enrich, project, and fan the
// results out per site to the sinks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pacificflyway/goose-resight-etl/internal/domain"
	"github.com/pacificflyway/goose-resight-etl/internal/observability"
	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// Tables holds the three raw layers returned by the extractor.
type Tables struct {
	Events *table.Table
	Points *table.Table
	Bands  *table.Table
}

// Extractor acquires the raw survey tables. A failure here is fatal for the
// run; there is no partial-export mode.
type Extractor interface {
	ExtractTables(ctx context.Context) (Tables, error)
}

// Sheet names a table inside a workbook.
type Sheet struct {
	Name  string
	Table *table.Table
}

// WorkbookSink writes a named multi-sheet spreadsheet artifact.
type WorkbookSink interface {
	WriteWorkbook(name string, sheets []Sheet) error
}

// CSVSink writes a named single-table CSV artifact.
type CSVSink interface {
	WriteCSV(name string, t *table.Table) error
}

// Options fixes the survey window ([Start, End), local midnights) and the
// local timezone for a run.
type Options struct {
	Start time.Time
	End   time.Time
	Local *time.Location
}

// Pipeline wires the extractor and sinks together with observability.
type Pipeline struct {
	extractor Extractor
	workbooks WorkbookSink
	csvs      CSVSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	opts      Options
}

// New creates a Pipeline.
func New(e Extractor, wb WorkbookSink, csvs CSVSink, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Pipeline {
	return &Pipeline{
		extractor: e,
		workbooks: wb,
		csvs:      csvs,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		opts:      opts,
	}
}

// Run executes one complete export. Either every artifact is produced or the
// run fails before writing any, with one exception: the archival dump is
// best-effort and independent of downstream success.
func (p *Pipeline) Run(ctx context.Context) error {
	started := p.clock.Now()
	stamp := started.In(p.opts.Local).Format("20060102_150405")
	p.logger.Info("export run started",
		"window_start", p.opts.Start.Format(time.DateOnly),
		"window_end", p.opts.End.Format(time.DateOnly),
	)

	raw, err := p.extractor.ExtractTables(ctx)
	if err != nil {
		return fmt.Errorf("extract survey tables: %w", err)
	}
	p.metrics.RowsExtracted.WithLabelValues("events").Add(float64(raw.Events.Len()))
	p.metrics.RowsExtracted.WithLabelValues("points").Add(float64(raw.Points.Len()))
	p.metrics.RowsExtracted.WithLabelValues("bands").Add(float64(raw.Bands.Len()))
	p.logger.Info("extracted survey layers",
		"events", raw.Events.Len(), "points", raw.Points.Len(), "bands", raw.Bands.Len())

	events, err := p.localize(raw.Events)
	if err != nil {
		return fmt.Errorf("localize events: %w", err)
	}
	points, err := p.localize(raw.Points)
	if err != nil {
		return fmt.Errorf("localize points: %w", err)
	}
	bands, err := p.localize(raw.Bands)
	if err != nil {
		return fmt.Errorf("localize bands: %w", err)
	}

	p.writeArchive(stamp, events, points, bands)

	derived, filteredEvents, err := p.deriveRecords(events, points)
	if err != nil {
		return err
	}

	flock, err := p.buildFlockLong(derived)
	if err != nil {
		return err
	}

	if err := p.writeMigratoryCSV(stamp, derived); err != nil {
		return err
	}
	if err := p.writeBandsCSV(stamp, filteredEvents, bands); err != nil {
		return err
	}
	if err := p.writeSiteBundles(stamp, derived, flock); err != nil {
		return err
	}

	p.metrics.RunDuration.Observe(p.clock.Since(started).Seconds())
	p.logger.Info("export run complete", "duration", p.clock.Since(started).String())
	return nil
}

// localize adds a zone-converted twin for every timestamp column, keeping
// the source column untouched.
func (p *Pipeline) localize(t *table.Table) (*table.Table, error) {
	out := t
	for _, col := range t.TimestampColumns() {
		var err error
		out, err = out.ConvertTimezone(col, domain.LocalSuffix, time.UTC, p.opts.Local)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// writeArchive dumps the three localized layers with human-readable dates.
// Best-effort: a failure is logged and the run continues.
func (p *Pipeline) writeArchive(stamp string, events, points, bands *table.Table) {
	name := fmt.Sprintf("GooseResight_Archive_%s.xlsx", stamp)
	sheets := []Sheet{
		{Name: "SurveyEvents", Table: events.FormatTimestamps(domain.ArchiveDateLayout)},
		{Name: "ObservationPoints", Table: points.FormatTimestamps(domain.ArchiveDateLayout)},
		{Name: "BandRecords", Table: bands.FormatTimestamps(domain.ArchiveDateLayout)},
	}
	if err := p.workbooks.WriteWorkbook(name, sheets); err != nil {
		p.logger.Warn("archival dump failed, continuing", "artifact", name, "error", err)
		return
	}
	p.logger.Info("wrote archival dump", "artifact", name)
}

// deriveRecords filters events to the survey window, resolves per-event
// fields, joins events to observation points, and resolves the per-point
// fields. It returns the derived table and the filtered event table (the
// latter is reused for the incidental-bands join).
func (p *Pipeline) deriveRecords(events, points *table.Table) (*table.Table, *table.Table, error) {
	filtered := events.Filter(domain.InDateRange(localSurveyField, p.opts.Start, p.opts.End))
	p.logger.Info("filtered events to survey window", "kept", filtered.Len(), "of", events.Len())

	filtered = filtered.WithColumn(domain.FieldObserverText, domain.ResolveObserver)
	filtered = filtered.WithColumn(domain.FieldState, domain.ResolveState)

	points = points.UppercaseStrings(domain.CollarFields()...)

	// Points whose parent event merely fell outside the survey window are
	// expected every run; only points with no parent event at all are a
	// data-quality drop.
	eventIDs := make(map[any]bool, events.Len())
	for _, r := range events.Rows() {
		eventIDs[r[domain.FieldGlobalID]] = true
	}
	orphans := 0
	parented := points.Filter(func(r table.Row) bool {
		if eventIDs[r[domain.FieldParentGlobalID]] {
			return true
		}
		orphans++
		return false
	})

	joined, stats, err := filtered.InnerJoin(parented, table.JoinSpec{
		LeftKey:     domain.FieldGlobalID,
		RightKey:    domain.FieldParentGlobalID,
		LeftSuffix:  domain.EventSuffix,
		RightSuffix: domain.PointSuffix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("join events with points: %w", err)
	}
	p.recordJoinDrops("events_points", table.JoinStats{
		LeftUnmatched:  stats.LeftUnmatched,
		RightUnmatched: orphans,
	})
	if stats.RightUnmatched > 0 {
		p.logger.Info("excluded points whose event is outside the survey window", "rows", stats.RightUnmatched)
	}

	derived := joined.
		WithColumn(domain.FieldLatitudeDD, domain.ResolveLatitude).
		WithColumn(domain.FieldLongitudeDD, domain.ResolveLongitude).
		WithColumn(domain.FieldCoordinateSource, domain.ResolveCoordinateSource).
		WithColumn(domain.FieldTotalGeese, domain.TotalGeese).
		WithColumn(domain.FieldLocation, domain.ComposeLocation)

	return derived, filtered, nil
}

// buildFlockLong pivots the 17 count columns into long rows, joins the
// envelope fields back on, and enriches with taxonomy. Points whose counts
// are all zero simply contribute no long rows; that is sparsity, not a
// data-quality drop, so this join is not warned about.
func (p *Pipeline) buildFlockLong(derived *table.Table) (*table.Table, error) {
	long := derived.Pivot(domain.FieldPointGlobalID, domain.PivotColumns(), domain.FieldCommonName, domain.FieldCount)

	flock, _, err := derived.InnerJoin(long, table.JoinSpec{
		LeftKey:     domain.FieldPointGlobalID,
		RightKey:    domain.FieldPointGlobalID,
		RightSuffix: "_Flock",
	})
	if err != nil {
		return nil, fmt.Errorf("join derived records with flock pivot: %w", err)
	}

	enriched := domain.EnrichTaxonomy(flock)
	for _, r := range enriched.Rows() {
		if r[domain.FieldScientificName] == nil {
			p.metrics.LookupMisses.Inc()
			p.logger.Warn("taxonomy lookup miss", "short_name", r[domain.FieldCommonName])
		}
	}
	return enriched, nil
}

func (p *Pipeline) writeMigratoryCSV(stamp string, derived *table.Table) error {
	out, err := derived.Project(migratoryProjection())
	if err != nil {
		return fmt.Errorf("project migratory-birds schema: %w", err)
	}
	name := fmt.Sprintf("GooseResight_MigratoryBirds_%s.csv", stamp)
	if err := p.csvs.WriteCSV(name, out); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	p.metrics.RowsExported.WithLabelValues("migratory_birds").Add(float64(out.Len()))
	p.logger.Info("wrote migratory-birds extract", "artifact", name, "rows", out.Len())
	return nil
}

func (p *Pipeline) writeBandsCSV(stamp string, events, bands *table.Table) error {
	joined, stats, err := events.InnerJoin(bands, table.JoinSpec{
		LeftKey:     domain.FieldGlobalID,
		RightKey:    domain.FieldParentGlobalID,
		LeftSuffix:  domain.EventSuffix,
		RightSuffix: "_Band",
	})
	if err != nil {
		return fmt.Errorf("join events with band records: %w", err)
	}
	p.recordJoinDrops("events_bands", table.JoinStats{RightUnmatched: stats.RightUnmatched})

	out, err := joined.Project(bandsProjection())
	if err != nil {
		return fmt.Errorf("project incidental-bands schema: %w", err)
	}
	name := fmt.Sprintf("GooseResight_IncidentalBands_%s.csv", stamp)
	if err := p.csvs.WriteCSV(name, out); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	p.metrics.RowsExported.WithLabelValues("incidental_bands").Add(float64(out.Len()))
	p.logger.Info("wrote incidental-bands extract", "artifact", name, "rows", out.Len())
	return nil
}

// writeSiteBundles fans the derived and long-form tables out per site, one
// workbook per site with the long flock, wide flock, and refuge sheets.
func (p *Pipeline) writeSiteBundles(stamp string, derived, flock *table.Table) error {
	siteParts := derived.PartitionBy(domain.FieldSiteName)
	flockParts := flock.PartitionBy(domain.FieldSiteName)

	for _, site := range table.SortedKeys(siteParts) {
		part := siteParts[site]
		flockPart, ok := flockParts[site]
		if !ok {
			// Every point at this site had all-zero counts.
			flockPart = flock.Filter(func(table.Row) bool { return false })
		}

		longOut, err := flockPart.Project(longFlockProjection())
		if err != nil {
			return fmt.Errorf("site %q: project long flock schema: %w", site, err)
		}
		wideOut, err := part.Project(wideFlockProjection())
		if err != nil {
			return fmt.Errorf("site %q: project wide flock schema: %w", site, err)
		}
		refugeOut, err := part.Project(refugeProjection())
		if err != nil {
			return fmt.Errorf("site %q: project refuge schema: %w", site, err)
		}

		name := fmt.Sprintf("GooseResight_%s_%s.xlsx", siteSlug(site), stamp)
		sheets := []Sheet{
			{Name: "FlockCountsLong", Table: longOut},
			{Name: "FlockCountsWide", Table: wideOut},
			{Name: "RefugeObservations", Table: refugeOut},
		}
		if err := p.workbooks.WriteWorkbook(name, sheets); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		p.metrics.RowsExported.WithLabelValues("site_bundle").Add(float64(refugeOut.Len()))
		p.logger.Info("wrote site bundle", "site", site, "artifact", name,
			"long_rows", longOut.Len(), "refuge_rows", refugeOut.Len())
	}
	return nil
}

// recordJoinDrops surfaces unmatched rows as warnings and metrics. The rows
// stay excluded from output; this only makes the exclusion visible.
func (p *Pipeline) recordJoinDrops(join string, stats table.JoinStats) {
	if stats.LeftUnmatched > 0 {
		p.metrics.JoinDrops.WithLabelValues(join, "left").Add(float64(stats.LeftUnmatched))
		p.logger.Warn("inner join dropped unmatched rows", "join", join, "side", "left", "rows", stats.LeftUnmatched)
	}
	if stats.RightUnmatched > 0 {
		p.metrics.JoinDrops.WithLabelValues(join, "right").Add(float64(stats.RightUnmatched))
		p.logger.Warn("inner join dropped unmatched rows", "join", join, "side", "right", "rows", stats.RightUnmatched)
	}
}

// siteSlug makes a site name filesystem-safe for artifact names.
func siteSlug(site string) string {
	if site == "" {
		return "UnknownSite"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, site)
}
