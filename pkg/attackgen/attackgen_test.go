package attackgen

import (
	"strings"
	"testing"

	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

func findSeed(seeds []Seed, identifier string) (Seed, bool) {
	for _, s := range seeds {
		if s.Identifier == identifier {
			return s, true
		}
	}
	return Seed{}, false
}

func TestGenerateEvasionLeetspeak(t *testing.T) {
	seeds, stats, err := Generate("acme", Options{Mode: ModeEvasion, MaxEdits: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.Returned != len(seeds) || stats.Returned == 0 {
		t.Fatalf("stats.Returned = %d, len(seeds) = %d", stats.Returned, len(seeds))
	}

	seed, ok := findSeed(seeds, "4cme")
	if !ok {
		t.Fatal(`evasion run missing the "4cme" seed`)
	}
	if seed.Kind != KindASCIILookalike || seed.Edits != 1 {
		t.Errorf("4cme seed = kind %s edits %d, want ascii-lookalike with 1 edit", seed.Kind, seed.Edits)
	}
	op := seed.Operations[0]
	if op.Position != 0 || op.From != "a" || op.To != "4" {
		t.Errorf("4cme operation = %+v", op)
	}
	if !seed.FormatValid {
		t.Error("4cme should pass the identifier format check")
	}
}

func TestGenerateImpersonationSkipsASCII(t *testing.T) {
	seeds, _, err := Generate("acme", Options{Mode: ModeImpersonation, MaxEdits: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range seeds {
		for _, op := range s.Operations {
			if op.Kind == KindASCIILookalike {
				t.Fatalf("impersonation seed %q carries an ascii-lookalike edit", s.Identifier)
			}
			for _, r := range op.To {
				if op.Kind == KindSubstitution && r < 0x80 {
					t.Fatalf("impersonation seed %q substitutes ASCII %q", s.Identifier, op.To)
				}
			}
		}
	}
}

func TestGenerateNeverEmitsTarget(t *testing.T) {
	for _, opts := range []Options{
		{Mode: ModeEvasion, MaxEdits: 1},
		{Mode: ModeEvasion, MaxEdits: 2},
		{Mode: ModeImpersonation, MaxEdits: 2},
	} {
		seeds, _, err := Generate("acme", opts)
		if err != nil {
			t.Fatalf("Generate(%+v): %v", opts, err)
		}
		if _, ok := findSeed(seeds, "acme"); ok {
			t.Errorf("options %+v emitted the unmodified target", opts)
		}
	}
}

func TestGenerateDeduplicates(t *testing.T) {
	seeds, stats, err := Generate("acme", Options{MaxEdits: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if _, dup := seen[s.Identifier]; dup {
			t.Fatalf("duplicate seed %q", s.Identifier)
		}
		seen[s.Identifier] = struct{}{}
	}
	if stats.Unique < stats.Returned {
		t.Errorf("stats = %+v, unique below returned", stats)
	}
}

func TestGenerateTwoEditCombination(t *testing.T) {
	seeds, _, err := Generate("acme", Options{Mode: ModeEvasion, MaxEdits: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	seed, ok := findSeed(seeds, "4cm3")
	if !ok {
		t.Fatal(`two-edit run missing the "4cm3" seed`)
	}
	if seed.Edits != 2 || len(seed.Operations) != 2 {
		t.Errorf("4cm3 seed = %+v, want two operations", seed)
	}
	if seed.Kind != KindASCIILookalike {
		t.Errorf("4cm3 kind = %s, want ascii-lookalike (both edits are)", seed.Kind)
	}
}

func TestGenerateMaxCandidates(t *testing.T) {
	seeds, stats, err := Generate("acme", Options{MaxEdits: 2, MaxCandidates: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(seeds) != 5 || stats.Returned != 5 {
		t.Errorf("len(seeds) = %d returned = %d, want 5", len(seeds), stats.Returned)
	}
	if !stats.Truncated {
		t.Error("Truncated = false after dropping candidates")
	}
}

func TestGenerateIgnorableInsertions(t *testing.T) {
	seeds, _, err := Generate("acme", Options{MaxEdits: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var inserts int
	for _, s := range seeds {
		if s.Kind != KindIgnorableInsert {
			continue
		}
		inserts++
		if s.FormatValid {
			t.Errorf("zero-width seed %q passed format validation", s.Identifier)
		}
		if s.Bypass {
			t.Errorf("zero-width seed %q flagged as bypass despite invalid format", s.Identifier)
		}
	}
	if inserts == 0 {
		t.Fatal("no zero-width insertion seeds generated")
	}

	seeds, _, err = Generate("acme", Options{MaxEdits: 1, NoIgnorables: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range seeds {
		if strings.ContainsAny(s.Identifier, "​‍") {
			t.Errorf("seed %q contains a zero-width rune with insertions disabled", s.Identifier)
		}
	}
}

func TestGenerateBypassCounting(t *testing.T) {
	// One leetspeak substitution scores just under 90; raising the block
	// threshold above it turns format-valid variants into bypasses.
	seeds, stats, err := Generate("acme", Options{
		Mode:     ModeEvasion,
		MaxEdits: 1,
		Risk:     risk.Options{WarnThreshold: risk.Threshold(10), BlockThreshold: risk.Threshold(95)},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.Bypasses == 0 {
		t.Fatal("no bypasses found with block threshold 95")
	}
	if !seeds[0].Bypass {
		t.Errorf("first seed %+v, want bypasses sorted first", seeds[0])
	}
	seed, ok := findSeed(seeds, "4cme")
	if !ok {
		t.Fatal(`missing "4cme" seed`)
	}
	if !seed.Bypass || seed.Assessment.Action == risk.ActionBlock {
		t.Errorf("4cme = bypass %v action %s, want a non-blocked format-valid seed", seed.Bypass, seed.Assessment.Action)
	}
}

func TestGenerateOptionValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		opts   Options
	}{
		{"empty target", "  ", Options{}},
		{"max edits too high", "acme", Options{MaxEdits: 3}},
		{"unknown mode", "acme", Options{Mode: "stealth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Generate(tt.target, tt.opts); err == nil {
				t.Error("Generate succeeded, want error")
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeEvasion, false},
		{"evasion", ModeEvasion, false},
		{"Impersonation", ModeImpersonation, false},
		{"stealth", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}
