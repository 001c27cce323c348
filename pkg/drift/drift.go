// Package drift quantifies how foldable lookalikes change risk decisions:
// the filtered table defers fullwidth, math-styled and leetspeak forms to
// NFKC and case folding, the full table maps them directly. Rows where the
// two disagree are exactly the identifiers a normalization-first pipeline
// would judge differently from a table-first one.
package drift

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

// ErrInvalidCorpus reports a malformed drift corpus.
var ErrInvalidCorpus = errors.New("invalid drift corpus")

// DefaultLimit caps how many per-row comparisons a report carries.
const DefaultLimit = 20

// Row is one identifier to score under both table variants.
type Row struct {
	Identifier string   `json:"identifier"`
	Protect    []string `json:"protect,omitempty"`
}

// Comparison is the per-row outcome under both variants.
type Comparison struct {
	Identifier     string      `json:"identifier"`
	ScoreFiltered  float64     `json:"scoreFiltered"`
	ScoreFull      float64     `json:"scoreFull"`
	Delta          float64     `json:"delta"`
	ActionFiltered risk.Action `json:"actionFiltered"`
	ActionFull     risk.Action `json:"actionFull"`
	Flip           bool        `json:"flip"`
}

// Report aggregates a drift run. Rows holds the most divergent comparisons,
// action flips first, capped at the configured limit.
type Report struct {
	Total            int          `json:"total"`
	ActionFlips      int          `json:"actionFlips"`
	FilteredStricter int          `json:"filteredStricter"`
	FullStricter     int          `json:"fullStricter"`
	MeanAbsDelta     float64      `json:"meanAbsDelta"`
	MaxAbsDelta      float64      `json:"maxAbsDelta"`
	Rows             []Comparison `json:"rows"`
}

// Options configures a drift run.
type Options struct {
	// Risk supplies scoring options; its Variant field is ignored, the
	// analysis always pins both variants itself.
	Risk risk.Options

	// Limit caps Report.Rows. Zero means DefaultLimit, negative means no
	// row detail at all.
	Limit int
}

// Analyze scores every row under the filtered and full tables and reports
// where they diverge.
func Analyze(rows []Row, opts Options) (Report, error) {
	return analyze(rows, opts, confusables.Filtered, confusables.Full)
}

// analyze is variant-parameterized so the degenerate same-variant run can
// assert its own reflexivity: analyze(rows, opts, v, v) must report zero
// flips and zero delta for any corpus.
func analyze(rows []Row, opts Options, left, right confusables.Variant) (Report, error) {
	if len(rows) == 0 {
		return Report{}, fmt.Errorf("%w: no rows", ErrInvalidCorpus)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	rep := Report{Total: len(rows)}
	comparisons := make([]Comparison, 0, len(rows))
	var sumAbs float64

	for _, row := range rows {
		ropts := opts.Risk
		if len(row.Protect) > 0 {
			ropts.Protect = row.Protect
		}

		ropts.Variant = left
		la := risk.Check(row.Identifier, ropts)
		ropts.Variant = right
		ra := risk.Check(row.Identifier, ropts)

		c := Comparison{
			Identifier:     row.Identifier,
			ScoreFiltered:  la.Score,
			ScoreFull:      ra.Score,
			Delta:          ra.Score - la.Score,
			ActionFiltered: la.Action,
			ActionFull:     ra.Action,
			Flip:           la.Action != ra.Action,
		}
		abs := math.Abs(c.Delta)
		sumAbs += abs
		if abs > rep.MaxAbsDelta {
			rep.MaxAbsDelta = abs
		}
		if c.Flip {
			rep.ActionFlips++
		}
		switch {
		case la.Score > ra.Score:
			rep.FilteredStricter++
		case ra.Score > la.Score:
			rep.FullStricter++
		}
		comparisons = append(comparisons, c)
	}
	rep.MeanAbsDelta = sumAbs / float64(len(rows))

	sort.SliceStable(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.Flip != b.Flip {
			return a.Flip
		}
		da, db := math.Abs(a.Delta), math.Abs(b.Delta)
		if da != db {
			return da > db
		}
		return a.Identifier < b.Identifier
	})
	if limit > 0 && len(comparisons) > limit {
		comparisons = comparisons[:limit]
	} else if limit < 0 {
		comparisons = nil
	}
	rep.Rows = comparisons
	return rep, nil
}

// BaselineRows builds the canonical drift corpus: one row per code point
// the filtered table excludes, impersonating the identifier made of its
// canonical ASCII form.
func BaselineRows() []Row {
	points := confusables.DivergentCodePoints()
	full := confusables.Get(confusables.Full)
	rows := make([]Row, 0, len(points))
	for _, r := range points {
		canon := full.Resolve(r)
		if canon == 0 {
			continue
		}
		rows = append(rows, Row{
			Identifier: string(r),
			Protect:    []string{string(canon)},
		})
	}
	return rows
}

// ParseRows decodes a drift corpus: a JSON array of {identifier, protect?}
// rows.
func ParseRows(data []byte) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: top level must be a JSON array of rows: %v", ErrInvalidCorpus, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidCorpus)
	}
	for i, r := range rows {
		if strings.TrimSpace(r.Identifier) == "" {
			return nil, fmt.Errorf(`%w: row %d: missing required field "identifier"`, ErrInvalidCorpus, i)
		}
	}
	return rows, nil
}
