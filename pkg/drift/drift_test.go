package drift

import (
	"errors"
	"testing"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

func TestAnalyzeBaseline(t *testing.T) {
	rows := BaselineRows()
	if len(rows) == 0 {
		t.Fatal("BaselineRows returned no rows")
	}

	rep, err := Analyze(rows, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Total != len(rows) {
		t.Errorf("Total = %d, want %d", rep.Total, len(rows))
	}
	// A single divergent substitution scores around 70 filtered and 89
	// full. Both land in the block band, so the tables disagree on score
	// but never on action.
	if rep.ActionFlips != 0 {
		t.Errorf("ActionFlips = %d, want 0", rep.ActionFlips)
	}
	if rep.FilteredStricter != 0 {
		t.Errorf("FilteredStricter = %d, want 0", rep.FilteredStricter)
	}
	if rep.FullStricter != rep.Total {
		t.Errorf("FullStricter = %d, want %d", rep.FullStricter, rep.Total)
	}
	if rep.MaxAbsDelta < 15 || rep.MaxAbsDelta > 25 {
		t.Errorf("MaxAbsDelta = %v, want roughly 19", rep.MaxAbsDelta)
	}
	if rep.MeanAbsDelta <= 0 {
		t.Errorf("MeanAbsDelta = %v, want > 0", rep.MeanAbsDelta)
	}
	if len(rep.Rows) != DefaultLimit {
		t.Errorf("len(Rows) = %d, want default limit %d", len(rep.Rows), DefaultLimit)
	}
}

func TestBaselineRowsShape(t *testing.T) {
	rows := BaselineRows()
	points := confusables.DivergentCodePoints()
	if len(rows) != len(points) {
		t.Errorf("len(rows) = %d, want one per divergent code point (%d)", len(rows), len(points))
	}
	for _, row := range rows {
		if len(row.Protect) != 1 {
			t.Fatalf("row %q protect = %v, want exactly one target", row.Identifier, row.Protect)
		}
		if row.Identifier == row.Protect[0] {
			t.Errorf("row %q impersonates itself", row.Identifier)
		}
	}
}

func TestAnalyzeReflexivity(t *testing.T) {
	rows := BaselineRows()
	rep, err := analyze(rows, Options{}, confusables.Full, confusables.Full)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.ActionFlips != 0 || rep.FilteredStricter != 0 || rep.FullStricter != 0 {
		t.Errorf("same-variant run disagreed with itself: %+v", rep)
	}
	if rep.MeanAbsDelta != 0 || rep.MaxAbsDelta != 0 {
		t.Errorf("same-variant deltas = mean %v max %v, want 0", rep.MeanAbsDelta, rep.MaxAbsDelta)
	}
}

func TestAnalyzeActionFlip(t *testing.T) {
	// Two leetspeak substitutions: the filtered table prices them as
	// divergences (score ~50, warn), the full table as confusables
	// (score ~80, block).
	rows := []Row{
		{Identifier: "p4yp4l", Protect: []string{"paypal"}},
		{Identifier: "quartz", Protect: []string{"paypal"}},
	}
	rep, err := Analyze(rows, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.ActionFlips != 1 {
		t.Fatalf("ActionFlips = %d, want 1", rep.ActionFlips)
	}
	top := rep.Rows[0]
	if top.Identifier != "p4yp4l" || !top.Flip {
		t.Fatalf("top row = %+v, want the flipped p4yp4l comparison first", top)
	}
	if top.ActionFiltered != risk.ActionWarn || top.ActionFull != risk.ActionBlock {
		t.Errorf("actions = %s/%s, want warn/block", top.ActionFiltered, top.ActionFull)
	}
	if top.Delta <= 0 {
		t.Errorf("Delta = %v, want full stricter than filtered", top.Delta)
	}
}

func TestAnalyzeLimit(t *testing.T) {
	rows := BaselineRows()

	rep, err := Analyze(rows, Options{Limit: 3})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(rep.Rows) != 3 {
		t.Errorf("len(Rows) = %d, want 3", len(rep.Rows))
	}

	rep, err = Analyze(rows, Options{Limit: -1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Rows != nil {
		t.Errorf("Rows = %v, want none with negative limit", rep.Rows)
	}
	if rep.Total != len(rows) {
		t.Errorf("Total = %d, want %d regardless of limit", rep.Total, len(rows))
	}
}

func TestParseRows(t *testing.T) {
	rows, err := ParseRows([]byte(`[{"identifier": "p4yp4l", "protect": ["paypal"]}]`))
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Identifier != "p4yp4l" {
		t.Errorf("rows = %+v", rows)
	}

	for _, bad := range []string{`{}`, `[]`, `[{"protect": ["x"]}]`, `not json`} {
		if _, err := ParseRows([]byte(bad)); !errors.Is(err, ErrInvalidCorpus) {
			t.Errorf("ParseRows(%q) error = %v, want ErrInvalidCorpus", bad, err)
		}
	}
}
