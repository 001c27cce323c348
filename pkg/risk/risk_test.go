package risk

import (
	"strings"
	"testing"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/distance"
)

func protectOnly(targets ...string) Options {
	o := DefaultOptions()
	o.IncludeReserved = false
	o.Protect = targets
	return o
}

func TestExactTargetCeiling(t *testing.T) {
	targets := []string{"admin", "paypal", "x", "long-protected-handle", "Mixed_Case9"}
	for _, target := range targets {
		a := Check(target, protectOnly(target))
		if a.Score != 100 {
			t.Errorf("Check(%q): score = %v, want 100", target, a.Score)
		}
		if a.Action != ActionBlock {
			t.Errorf("Check(%q): action = %s, want block", target, a.Action)
		}
		if len(a.Matches) == 0 || a.Matches[0].Reasons[0] != ReasonExactMatch {
			t.Errorf("Check(%q): expected exact-target-match reason", target)
		}
	}
}

func TestCyrillicAdminBlocks(t *testing.T) {
	a := Check("аdmin", protectOnly("admin"))

	if a.Score < 80 {
		t.Errorf("score = %v, want >= 80", a.Score)
	}
	if a.Action != ActionBlock {
		t.Errorf("action = %s, want block", a.Action)
	}
	if len(a.Matches) == 0 {
		t.Fatal("expected at least one match")
	}
	top := a.Matches[0]
	if top.Target != "admin" {
		t.Errorf("top match = %q, want admin", top.Target)
	}
	if !top.SkeletonEqual {
		t.Error("skeletonEqual must be true for a pure homoglyph swap")
	}
	wantReasons := map[Reason]bool{ReasonConfusable: false, ReasonMixedScript: false}
	for _, r := range a.Reasons {
		if _, ok := wantReasons[r]; ok {
			wantReasons[r] = true
		}
	}
	for r, seen := range wantReasons {
		if !seen {
			t.Errorf("missing reason %s (got %v)", r, a.Reasons)
		}
	}
}

func TestScoreMonotoneInDistance(t *testing.T) {
	// candidates ordered by increasing distance from "paypal"
	candidates := []string{
		"paypal",        // exact
		"pay​pal",  // one ignorable
		"pаypal",   // one cross-script confusable
		"paypаl1",  // confusable + surplus char
		"paypa1zz",      // heavier damage
		"qqqqqq",        // unrelated
	}
	opts := protectOnly("paypal")
	prevScore := 101.0
	prevDist := -1.0
	for _, c := range candidates {
		a := Check(c, opts)
		d := distance.Compute(Normalize(c), "paypal", distance.Options{}).Distance
		if d < prevDist {
			t.Fatalf("test fixture broken: %q not in increasing distance order", c)
		}
		if a.Score > prevScore {
			t.Errorf("monotonicity violated at %q: score %v after %v", c, a.Score, prevScore)
		}
		prevScore, prevDist = a.Score, d
	}
}

func TestInvisibleCharacterReason(t *testing.T) {
	a := Check("pay​pal", protectOnly("paypal"))
	if a.Action != ActionBlock {
		t.Errorf("action = %s, want block for zero-width insertion", a.Action)
	}
	found := false
	for _, r := range a.Reasons {
		if r == ReasonInvisible {
			found = true
		}
	}
	if !found {
		t.Errorf("missing invisible-character reason: %v", a.Reasons)
	}
}

func TestDivergentReasonUnderFiltered(t *testing.T) {
	a := Check("p4ypal", protectOnly("paypal"))
	found := false
	for _, r := range a.Reasons {
		if r == ReasonDivergent {
			found = true
		}
	}
	if !found {
		t.Errorf("missing nfkc-divergent reason: %v", a.Reasons)
	}

	// Under Full the same pair is a plain confusable.
	o := protectOnly("paypal")
	o.Variant = confusables.Full
	a = Check("p4ypal", o)
	for _, r := range a.Reasons {
		if r == ReasonDivergent {
			t.Errorf("full variant must not report divergence: %v", a.Reasons)
		}
	}
}

func TestMaxMatchesCapsPresentationOnly(t *testing.T) {
	o := protectOnly("admin", "admin1", "admin2", "admin3", "adm1n", "admina", "adminb")
	o.MaxMatches = 2
	a := Check("admin", o)

	if len(a.Matches) != 2 {
		t.Errorf("len(matches) = %d, want 2", len(a.Matches))
	}
	if a.TotalMatches <= 2 {
		t.Errorf("total_matches = %d, want > 2", a.TotalMatches)
	}
	if a.Score != 100 {
		t.Errorf("score = %v, truncation must not touch the score", a.Score)
	}
}

func TestMatchOrdering(t *testing.T) {
	a := Check("admin", protectOnly("zadmin", "aadmin", "admin"))
	if a.Matches[0].Target != "admin" {
		t.Fatalf("top match = %q, want exact target first", a.Matches[0].Target)
	}
	// Equal-score ties fall back to lexical target order.
	for i := 1; i < len(a.Matches)-1; i++ {
		x, y := a.Matches[i], a.Matches[i+1]
		if x.Score == y.Score && x.ChainDepth == y.ChainDepth && x.Target > y.Target {
			t.Errorf("tie-break violated: %q before %q", x.Target, y.Target)
		}
	}
}

func TestIncludeReserved(t *testing.T) {
	withReserved := DefaultOptions()
	a := Check("paypal", withReserved)
	if a.Score != 100 {
		t.Errorf("reserved name must exact-match: score %v", a.Score)
	}

	withReserved.IncludeReserved = false
	a = Check("paypal", withReserved)
	if a.Score != 0 {
		t.Errorf("without reserved list there are no targets: score %v", a.Score)
	}
	if a.Action != ActionAllow {
		t.Errorf("action = %s, want allow", a.Action)
	}
}

func TestThresholdClassification(t *testing.T) {
	testCases := []struct {
		name  string
		warn  *float64
		block *float64
		want  Action
	}{
		{"default blocks homoglyph", nil, nil, ActionBlock},
		{"raised block demotes to warn", Threshold(25), Threshold(95), ActionWarn},
		{"raised both allows", Threshold(95), Threshold(99), ActionAllow},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := protectOnly("admin")
			o.WarnThreshold = tc.warn
			o.BlockThreshold = tc.block
			a := Check("аdmin", o)
			if a.Action != tc.want {
				t.Errorf("action = %s, want %s (score %v)", a.Action, tc.want, a.Score)
			}
		})
	}
}

func TestBlockNeverBelowWarn(t *testing.T) {
	o := protectOnly("admin")
	o.WarnThreshold = Threshold(80)
	o.BlockThreshold = Threshold(10) // nonsensical, must be clamped up
	a := Check("аdmin", o)
	if a.Action == ActionBlock && a.Score < 80 {
		t.Errorf("score %v below warn yet blocked", a.Score)
	}
}

func TestZeroWarnThreshold(t *testing.T) {
	// An explicit zero is a real threshold: any score, however small,
	// classifies at or above it.
	o := protectOnly("admin")
	o.WarnThreshold = Threshold(0)
	o.BlockThreshold = Threshold(100)
	a := Check("zzzzz", o)
	if a.Score <= 0 || a.Score >= 1 {
		t.Fatalf("score = %v, want a small positive residual", a.Score)
	}
	if a.Action != ActionWarn {
		t.Errorf("action = %s, want warn when the warn threshold is zero", a.Action)
	}

	o.BlockThreshold = Threshold(0)
	a = Check("zzzzz", o)
	if a.Action != ActionBlock {
		t.Errorf("action = %s, want block when the block threshold is zero", a.Action)
	}
}

func TestValidFormat(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"admin", true},
		{"Admin-01_x", true},
		{"a", true},
		{"", false},
		{"-admin", false},
		{"аdmin", false},
		{"pay​pal", false},
		{"a" + strings.Repeat("b", 37), true},
		{"a" + strings.Repeat("b", 38), false},
		{"waytoolong" + string(make([]byte, 40)), false},
	}
	for _, tc := range testCases {
		if got := ValidFormat(tc.in); got != tc.want {
			t.Errorf("ValidFormat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevels(t *testing.T) {
	o := protectOnly("admin")
	testCases := []struct {
		in   string
		want Level
	}{
		{"admin", LevelCritical},
		{"аdmin", LevelHigh},
		{"admjn", LevelLow},
		{"zzzzz", LevelLow},
	}
	for _, tc := range testCases {
		a := Check(tc.in, o)
		if a.Level != tc.want {
			t.Errorf("Check(%q): level = %s (score %v), want %s", tc.in, a.Level, a.Score, tc.want)
		}
	}
}
