// Package header locates the header row of a decoded ledger grid and maps
// its columns onto canonical fields.
package header

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// MinScore is the number of distinct fields a row must expose before it is
// accepted as the header.
const MinScore = 2

// DefaultScanRows bounds how far down the sheet the detector looks.
const DefaultScanRows = 30

// Map resolves a canonical field to its zero-based column. Fields absent
// from the header are absent from the map.
type Map map[Field]int

// Index returns the column for f and whether the header carries it.
func (m Map) Index(f Field) (int, bool) {
	i, ok := m[f]
	return i, ok
}

// Has reports whether the header carries f.
func (m Map) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Detection is the outcome of scanning a grid for its header.
type Detection struct {
	Row      int
	Score    int
	Map      Map
	Labels   map[Field]string // header cell text per mapped field
	Fallback bool             // no row reached MinScore; row 0 was used
}

type entry struct {
	field Field
	order int
	runes int
}

// Matcher recognises header spellings with a single Aho-Corasick pass per
// cell.
type Matcher struct {
	ac      *ahocorasick.Matcher
	entries []entry
}

// NewMatcher builds a matcher over the synonym table.
func NewMatcher() *Matcher {
	var (
		dict    []string
		entries []entry
	)

	for order, s := range synonyms {
		for _, sp := range s.Spelling {
			dict = append(dict, sp)
			entries = append(entries, entry{field: s.Field, order: order, runes: utf8.RuneCountInString(sp)})
		}
	}

	return &Matcher{
		ac:      ahocorasick.NewStringMatcher(dict),
		entries: entries,
	}
}

var defaultMatcher = NewMatcher()

// Classify returns the field a single header cell belongs to. The longest
// contained spelling decides; equal lengths go to the field listed first.
func (m *Matcher) Classify(cell string) (Field, bool) {
	key := compact(cell)
	if key == "" {
		return "", false
	}

	hits := m.ac.MatchThreadSafe([]byte(key))
	if len(hits) == 0 {
		return "", false
	}

	best := m.entries[hits[0]]

	for _, h := range hits[1:] {
		e := m.entries[h]
		if e.runes > best.runes || (e.runes == best.runes && e.order < best.order) {
			best = e
		}
	}

	return best.field, true
}

// Columns maps one row, treated as a header, onto canonical fields. Each
// column feeds at most one field and each field takes its first column.
func (m *Matcher) Columns(row []string) (Map, map[Field]string) {
	cols := make(Map)
	labels := make(map[Field]string)

	for i, cell := range row {
		f, ok := m.Classify(cell)
		if !ok || cols.Has(f) {
			continue
		}

		cols[f] = i
		labels[f] = strings.TrimSpace(cell)
	}

	return cols, labels
}

// Detect scans at most maxRows rows from the top of grid and returns the
// row recognising the most distinct fields. The first row reaching the best
// score wins. When no row reaches MinScore, row 0 is used with whatever it
// maps.
func (m *Matcher) Detect(grid [][]string, maxRows int) Detection {
	if maxRows <= 0 {
		maxRows = DefaultScanRows
	}

	limit := min(maxRows, len(grid))

	best := Detection{Row: -1, Score: -1}

	for r := 0; r < limit; r++ {
		cols, labels := m.Columns(grid[r])
		if len(cols) > best.Score {
			best = Detection{Row: r, Score: len(cols), Map: cols, Labels: labels}
		}
	}

	if best.Score >= MinScore {
		return best
	}

	d := Detection{Row: 0, Map: Map{}, Labels: map[Field]string{}, Fallback: true}
	if len(grid) > 0 {
		d.Map, d.Labels = m.Columns(grid[0])
		d.Score = len(d.Map)
	}

	return d
}

// Detect runs the default matcher.
func Detect(grid [][]string, maxRows int) Detection {
	return defaultMatcher.Detect(grid, maxRows)
}

// Columns maps a known header row with the default matcher.
func Columns(row []string) Map {
	cols, _ := defaultMatcher.Columns(row)
	return cols
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return unicode.ToLower(r)
	}, s)
}
