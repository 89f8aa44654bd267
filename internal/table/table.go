// Package table implements the in-memory table engine the export pipeline is
// built on. A Table is an ordered set of named columns plus rows of values;
// every operation returns a new Table and leaves its input untouched, so each
// pipeline stage owns exactly the tables it produced.
//
// Timestamp convention: a naive timestamp (no zone attached by the source) is
// represented as a time.Time in time.UTC. Any other location means the value
// has already been localized; re-localizing it would silently shift the wall
// clock, so ConvertTimezone refuses with ErrAlreadyLocalized.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrAlreadyLocalized is returned when ConvertTimezone encounters a value
// that carries a non-UTC location.
var ErrAlreadyLocalized = errors.New("timestamp already localized")

// Row maps column names to values. Values are nil, string, bool, float64,
// int, int64, or time.Time.
type Row map[string]any

// Table is an ordered list of columns and the rows beneath them.
type Table struct {
	cols   []string
	rows   []Row
	tsCols map[string]bool
}

// New creates an empty table with the given column order.
func New(cols ...string) *Table {
	return &Table{cols: append([]string(nil), cols...)}
}

// FromRows creates a table from pre-built rows. The rows are not copied;
// callers hand over ownership.
func FromRows(cols []string, rows []Row) *Table {
	return &Table{cols: append([]string(nil), cols...), rows: rows}
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.cols {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the underlying rows. The slice and its rows belong to the
// table; callers that mutate must clone first.
func (t *Table) Rows() []Row { return t.rows }

// Append adds a row. Missing columns read as nil.
func (t *Table) Append(r Row) { t.rows = append(t.rows, r) }

// MarkTimestamps declares columns as timestamp-typed. Declared columns are
// reported by TimestampColumns even when no row carries a value, so a table
// built from source-schema metadata keeps its timestamp columns at zero rows.
func (t *Table) MarkTimestamps(cols ...string) {
	if t.tsCols == nil {
		t.tsCols = make(map[string]bool, len(cols))
	}
	for _, c := range cols {
		t.tsCols[c] = true
	}
}

func (t *Table) clone() *Table {
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		rows[i] = nr
	}
	return &Table{cols: append([]string(nil), t.cols...), rows: rows, tsCols: copyMarks(t.tsCols)}
}

func copyMarks(m map[string]bool) map[string]bool {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// Filter returns a new table holding only the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{cols: append([]string(nil), t.cols...), tsCols: copyMarks(t.tsCols)}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithColumn returns a new table with an extra column computed per row.
// If the column already exists its values are replaced in place.
func (t *Table) WithColumn(name string, fn func(Row) any) *Table {
	out := t.clone()
	if !out.HasColumn(name) {
		out.cols = append(out.cols, name)
	}
	for _, r := range out.rows {
		r[name] = fn(r)
	}
	return out
}

// TimestampColumns returns the timestamp-typed columns in declaration order:
// those marked via MarkTimestamps, plus any whose first non-nil value is a
// time.Time.
func (t *Table) TimestampColumns() []string {
	var out []string
	for _, c := range t.cols {
		if t.tsCols[c] {
			out = append(out, c)
			continue
		}
		for _, r := range t.rows {
			v, ok := r[c]
			if !ok || v == nil {
				continue
			}
			if _, isTime := v.(time.Time); isTime {
				out = append(out, c)
			}
			break
		}
	}
	return out
}

// ConvertTimezone adds field+suffix holding the source field localized to src
// and converted to dst. The source column is retained unchanged and the new
// column is inserted immediately after it. Values must be naive (stored in
// UTC); anything else fails with ErrAlreadyLocalized rather than risking a
// double conversion.
func (t *Table) ConvertTimezone(field, suffix string, src, dst *time.Location) (*Table, error) {
	if !t.HasColumn(field) {
		return nil, fmt.Errorf("convert timezone: no column %q", field)
	}
	target := field + suffix
	out := t.clone()
	out.cols = insertAfter(out.cols, field, target)
	for i, r := range out.rows {
		v := r[field]
		if v == nil {
			r[target] = nil
			continue
		}
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("convert timezone: column %q row %d holds %T, not a timestamp", field, i, v)
		}
		if ts.Location() != time.UTC {
			return nil, fmt.Errorf("convert timezone: column %q row %d: %w", field, i, ErrAlreadyLocalized)
		}
		localized := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), src)
		r[target] = localized.In(dst)
	}
	return out, nil
}

// FormatTimestamps returns a copy in which every zone-aware timestamp value
// is rewritten as text using the given layout. Naive (UTC) timestamps and
// non-timestamp values pass through. Meant for archival copies handed to
// spreadsheet sinks.
func (t *Table) FormatTimestamps(layout string) *Table {
	out := t.clone()
	for _, r := range out.rows {
		for _, c := range out.cols {
			ts, ok := r[c].(time.Time)
			if ok && ts.Location() != time.UTC {
				r[c] = ts.Format(layout)
			}
		}
	}
	return out
}

// UppercaseStrings returns a copy with every string value in the given
// columns uppercased. Non-string values and other columns pass through.
func (t *Table) UppercaseStrings(fields ...string) *Table {
	out := t.clone()
	for _, r := range out.rows {
		for _, c := range fields {
			if s, ok := r[c].(string); ok {
				r[c] = strings.ToUpper(s)
			}
		}
	}
	return out
}

// JoinSpec declares an inner join: the key column on each side and the
// suffix appended to either side's column name when both sides declare the
// same column. Suffixes are declared per join so output names stay
// deterministic and reviewable.
type JoinSpec struct {
	LeftKey     string
	RightKey    string
	LeftSuffix  string
	RightSuffix string
}

// JoinStats counts the rows an inner join dropped on each side.
type JoinStats struct {
	LeftUnmatched  int
	RightUnmatched int
}

// InnerJoin joins t (left) with right on the declared key pair. Rows without
// a match on the other side are dropped and counted in JoinStats. All columns
// from both sides survive; on a name collision each side's column is renamed
// with its declared suffix.
func (t *Table) InnerJoin(right *Table, spec JoinSpec) (*Table, JoinStats, error) {
	if !t.HasColumn(spec.LeftKey) {
		return nil, JoinStats{}, fmt.Errorf("inner join: left table has no column %q", spec.LeftKey)
	}
	if !right.HasColumn(spec.RightKey) {
		return nil, JoinStats{}, fmt.Errorf("inner join: right table has no column %q", spec.RightKey)
	}

	collides := make(map[string]bool)
	for _, c := range t.cols {
		if right.HasColumn(c) {
			if spec.LeftSuffix == "" && spec.RightSuffix == "" {
				return nil, JoinStats{}, fmt.Errorf("inner join: column %q exists on both sides and no suffixes declared", c)
			}
			collides[c] = true
		}
	}
	leftName := func(c string) string {
		if collides[c] {
			return c + spec.LeftSuffix
		}
		return c
	}
	rightName := func(c string) string {
		if collides[c] {
			return c + spec.RightSuffix
		}
		return c
	}

	cols := make([]string, 0, len(t.cols)+len(right.cols))
	for _, c := range t.cols {
		cols = append(cols, leftName(c))
	}
	for _, c := range right.cols {
		cols = append(cols, rightName(c))
	}

	byKey := make(map[any][]Row, right.Len())
	for _, r := range right.rows {
		k := r[spec.RightKey]
		byKey[k] = append(byKey[k], r)
	}

	out := &Table{cols: cols}
	var stats JoinStats
	matchedRight := make(map[any]bool)
	for _, lr := range t.rows {
		matches := byKey[lr[spec.LeftKey]]
		if len(matches) == 0 {
			stats.LeftUnmatched++
			continue
		}
		matchedRight[lr[spec.LeftKey]] = true
		for _, rr := range matches {
			nr := make(Row, len(lr)+len(rr))
			for _, c := range t.cols {
				nr[leftName(c)] = lr[c]
			}
			for _, c := range right.cols {
				nr[rightName(c)] = rr[c]
			}
			out.rows = append(out.rows, nr)
		}
	}
	for k, rows := range byKey {
		if !matchedRight[k] {
			stats.RightUnmatched += len(rows)
		}
	}
	return out, stats, nil
}

// PivotColumn pairs a wide count column with the short name it stands for.
// The pairs are enumerated explicitly rather than inferred from column-name
// suffixes.
type PivotColumn struct {
	Column    string
	ShortName string
}

// Pivot reshapes wide per-category count columns into long rows: one row per
// (id, short name, count) where the count is present and non-zero. Absence of
// a category is not itself data, so nil and zero counts produce no row.
func (t *Table) Pivot(idCol string, cols []PivotColumn, nameCol, countCol string) *Table {
	out := New(idCol, nameCol, countCol)
	for _, r := range t.rows {
		for _, pc := range cols {
			n, ok := AsFloat(r[pc.Column])
			if !ok || n == 0 {
				continue
			}
			out.rows = append(out.rows, Row{idCol: r[idCol], nameCol: pc.ShortName, countCol: n})
		}
	}
	return out
}

// Projection selects, renames, and orders output columns. A field ending in
// "*" selects every column with that prefix, in the source table's order.
type Projection struct {
	Fields []string
	Rename map[string]string
}

// Project builds a table with exactly the requested columns in the requested
// order. A named field missing from the source is a structural error since
// downstream consumers parse by column name.
func (t *Table) Project(p Projection) (*Table, error) {
	var selected []string
	for _, f := range p.Fields {
		if prefix, ok := strings.CutSuffix(f, "*"); ok {
			matched := false
			for _, c := range t.cols {
				if strings.HasPrefix(c, prefix) {
					selected = append(selected, c)
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("project: no columns match %q", f)
			}
			continue
		}
		if !t.HasColumn(f) {
			return nil, fmt.Errorf("project: no column %q", f)
		}
		selected = append(selected, f)
	}

	outName := func(c string) string {
		if n, ok := p.Rename[c]; ok {
			return n
		}
		return c
	}
	cols := make([]string, len(selected))
	for i, c := range selected {
		cols[i] = outName(c)
	}

	out := &Table{cols: cols}
	for _, r := range t.rows {
		nr := make(Row, len(selected))
		for _, c := range selected {
			nr[outName(c)] = r[c]
		}
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// PartitionBy groups rows by the string value of a column, preserving row
// order within each group. Rows with a nil value group under "".
func (t *Table) PartitionBy(field string) map[string]*Table {
	out := make(map[string]*Table)
	for _, r := range t.rows {
		key, _ := r[field].(string)
		part, ok := out[key]
		if !ok {
			part = &Table{cols: append([]string(nil), t.cols...)}
			out[key] = part
		}
		part.rows = append(part.rows, r)
	}
	return out
}

// SortedKeys returns a partition map's keys in lexical order, for
// deterministic export fan-out.
func SortedKeys(parts map[string]*Table) []string {
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsFloat coerces the numeric value types a Row may hold.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func insertAfter(cols []string, after, name string) []string {
	out := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		out = append(out, c)
		if c == after {
			out = append(out, name)
		}
	}
	return out
}
