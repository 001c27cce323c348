// Package attackgen enumerates plausible adversarial variants of a protected
// target and scores each one, surfacing the candidates that slip past the
// block threshold while still looking like a registrable identifier. Those
// bypasses are the actionable output: each one is a concrete argument for a
// stricter threshold or a new mapping entry.
package attackgen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/risk"
)

// Mode selects the variant families to enumerate.
type Mode string

const (
	// ModeImpersonation keeps only non-ASCII lookalikes: variants that
	// render near-identically to the target.
	ModeImpersonation Mode = "impersonation"
	// ModeEvasion adds the ASCII leetspeak substitutions: variants a human
	// still reads as the target but plain string comparison does not.
	ModeEvasion Mode = "evasion"
)

// ParseMode maps a CLI spelling to a Mode. Empty means evasion.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeEvasion, "":
		return ModeEvasion, nil
	case ModeImpersonation:
		return ModeImpersonation, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, ModeEvasion, ModeImpersonation)
	}
}

// Kind classifies a generated seed by its dominant edit class.
type Kind string

const (
	KindSubstitution    Kind = "substitution"
	KindASCIILookalike  Kind = "ascii-lookalike"
	KindIgnorableInsert Kind = "ignorable-insert"
)

// Operation is one edit applied to the target. From is empty for inserts.
type Operation struct {
	Kind     Kind   `json:"kind"`
	Position int    `json:"position"`
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
}

// Seed is one scored adversarial candidate.
type Seed struct {
	Identifier  string          `json:"identifier"`
	Edits       int             `json:"edits"`
	Kind        Kind            `json:"kind"`
	Operations  []Operation     `json:"operations"`
	Assessment  risk.Assessment `json:"assessment"`
	FormatValid bool            `json:"formatValid"`
	Bypass      bool            `json:"bypass"`
}

// Stats summarizes a generation run.
type Stats struct {
	Target    string `json:"target"`
	Mode      Mode   `json:"mode"`
	Generated int    `json:"generated"`
	Unique    int    `json:"unique"`
	Returned  int    `json:"returned"`
	Bypasses  int    `json:"bypasses"`
	Truncated bool   `json:"truncated"`
}

const (
	// DefaultMaxPerChar bounds the replacement bucket per source character.
	DefaultMaxPerChar = 4
	// DefaultMaxCandidates bounds how many unique candidates get scored.
	DefaultMaxCandidates = 128
	// hardGenerationCap stops raw enumeration outright. Two-edit runs over
	// long targets blow up combinatorially without it.
	hardGenerationCap = 512
)

// zero-width runes used for insertion seeds.
var insertRunes = []rune{'​', '‍'}

// Options configures a generation run. The zero value means evasion mode,
// single edits, ignorable insertions on, package defaults for the caps.
type Options struct {
	Mode          Mode
	MaxEdits      int
	MaxPerChar    int
	NoIgnorables  bool // suppress zero-width insertion seeds
	MaxCandidates int
	Variant       confusables.Variant

	// Risk carries threshold overrides for seed scoring; Protect and
	// Variant are pinned by Generate itself.
	Risk risk.Options
}

func (o *Options) normalize() error {
	if o.Mode == "" {
		o.Mode = ModeEvasion
	}
	if o.Mode != ModeEvasion && o.Mode != ModeImpersonation {
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	if o.MaxEdits == 0 {
		o.MaxEdits = 1
	}
	if o.MaxEdits < 1 || o.MaxEdits > 2 {
		return fmt.Errorf("max edits must be 1 or 2, got %d", o.MaxEdits)
	}
	if o.MaxPerChar <= 0 {
		o.MaxPerChar = DefaultMaxPerChar
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.Variant == "" {
		o.Variant = confusables.Full
	}
	return nil
}

// Generate enumerates adversarial variants of target, scores each against it
// and reports the run statistics. Seeds come back bypasses first, then by
// score descending, identifier ascending.
func Generate(target string, opts Options) ([]Seed, Stats, error) {
	if strings.TrimSpace(target) == "" {
		return nil, Stats{}, errors.New("empty target")
	}
	if err := opts.normalize(); err != nil {
		return nil, Stats{}, err
	}

	target = risk.Normalize(target)
	runes := []rune(target)
	buckets := buildBuckets(runes, opts)

	stats := Stats{Target: target, Mode: opts.Mode}
	seen := map[string]struct{}{target: {}}
	var candidates []candidate

	emit := func(c candidate) bool {
		if stats.Generated >= hardGenerationCap {
			stats.Truncated = true
			return false
		}
		stats.Generated++
		if _, dup := seen[c.identifier]; dup {
			return true
		}
		seen[c.identifier] = struct{}{}
		candidates = append(candidates, c)
		return true
	}

	// Single-position substitutions, positions left to right, bucket order
	// within a position. Deterministic by construction.
	for i := range runes {
		for _, rep := range buckets[i] {
			if !emit(substitute(runes, []edit{{i, rep}})) {
				break
			}
		}
	}

	// Zero-width insertions at every boundary.
	if !opts.NoIgnorables {
		for _, zw := range insertRunes {
			for i := 0; i <= len(runes); i++ {
				if !emit(insert(runes, i, zw)) {
					break
				}
			}
		}
	}

	// Two-position substitution combinations.
	if opts.MaxEdits >= 2 {
	combos:
		for i := 0; i < len(runes); i++ {
			for j := i + 1; j < len(runes); j++ {
				for _, ri := range buckets[i] {
					for _, rj := range buckets[j] {
						if !emit(substitute(runes, []edit{{i, ri}, {j, rj}})) {
							break combos
						}
					}
				}
			}
		}
	}

	stats.Unique = len(candidates)
	if len(candidates) > opts.MaxCandidates {
		candidates = candidates[:opts.MaxCandidates]
		stats.Truncated = true
	}

	ropts := opts.Risk
	ropts.Protect = []string{target}
	ropts.Variant = opts.Variant

	seeds := make([]Seed, 0, len(candidates))
	for _, c := range candidates {
		a := risk.Check(c.identifier, ropts)
		s := Seed{
			Identifier:  c.identifier,
			Edits:       len(c.ops),
			Kind:        seedKind(c.ops),
			Operations:  c.ops,
			Assessment:  a,
			FormatValid: a.FormatValid,
			Bypass:      a.FormatValid && a.Action != risk.ActionBlock,
		}
		if s.Bypass {
			stats.Bypasses++
		}
		seeds = append(seeds, s)
	}
	stats.Returned = len(seeds)

	sort.SliceStable(seeds, func(i, j int) bool {
		a, b := seeds[i], seeds[j]
		if a.Bypass != b.Bypass {
			return a.Bypass
		}
		if a.Assessment.Score != b.Assessment.Score {
			return a.Assessment.Score > b.Assessment.Score
		}
		return a.Identifier < b.Identifier
	})
	return seeds, stats, nil
}

type edit struct {
	pos int
	rep rune
}

type candidate struct {
	identifier string
	ops        []Operation
}

// buildBuckets computes the per-position replacement bucket: sources that
// resolve to the target character, ASCII lookalikes leading in evasion mode,
// dropped entirely in impersonation mode, then non-ASCII sources by code
// point, capped at MaxPerChar.
func buildBuckets(runes []rune, opts Options) [][]rune {
	table := confusables.Get(confusables.Full)
	buckets := make([][]rune, len(runes))
	for i, r := range runes {
		sources := table.Sources(r)
		bucket := make([]rune, 0, opts.MaxPerChar)
		for _, src := range sources {
			if len(bucket) >= opts.MaxPerChar {
				break
			}
			if src < 0x80 && opts.Mode != ModeEvasion {
				continue
			}
			bucket = append(bucket, src)
		}
		buckets[i] = bucket
	}
	return buckets
}

func substitute(runes []rune, edits []edit) candidate {
	out := make([]rune, len(runes))
	copy(out, runes)
	ops := make([]Operation, 0, len(edits))
	for _, e := range edits {
		out[e.pos] = e.rep
		kind := KindSubstitution
		if e.rep < 0x80 {
			kind = KindASCIILookalike
		}
		ops = append(ops, Operation{
			Kind:     kind,
			Position: e.pos,
			From:     string(runes[e.pos]),
			To:       string(e.rep),
		})
	}
	return candidate{identifier: string(out), ops: ops}
}

func insert(runes []rune, pos int, r rune) candidate {
	out := make([]rune, 0, len(runes)+1)
	out = append(out, runes[:pos]...)
	out = append(out, r)
	out = append(out, runes[pos:]...)
	return candidate{
		identifier: string(out),
		ops: []Operation{{
			Kind:     KindIgnorableInsert,
			Position: pos,
			To:       string(r),
		}},
	}
}

// seedKind is the dominant class: uniform operation kinds keep their kind,
// mixed substitution pairs degrade to plain substitution.
func seedKind(ops []Operation) Kind {
	kind := ops[0].Kind
	for _, op := range ops[1:] {
		if op.Kind != kind {
			return KindSubstitution
		}
	}
	return kind
}
