// Package distance implements the weighted confusable distance metric: a
// character-alignment distance that prices exact matches, confusable
// substitutions, cross-script substitutions, ignorable insertions and
// normalization divergence differently, optionally overridden per pair by
// measured visual-weight data.
//
// Every computation is a pure function of its inputs; results are cheap and
// recomputed per pair, never cached.
package distance

import (
	"math"
	"unicode"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"

	"golang.org/x/text/unicode/norm"
)

// StepKind tags one alignment operation.
type StepKind string

const (
	StepExact        StepKind = "exact"
	StepConfusable   StepKind = "confusable-substitution"
	StepIgnorable    StepKind = "ignorable"
	StepDivergence   StepKind = "divergence"
	StepVisualWeight StepKind = "visual-weight"
	StepMismatch     StepKind = "mismatch"
)

// Cost constants. Their relative ordering (substitution < cross-script
// substitution < mismatch) is load-bearing: risk scoring monotonicity
// depends on it. Retune values, not the ordering.
const (
	ConfusableCost     = 0.08
	CrossScriptPremium = 0.07
	IgnorableCost      = 0.05
	DivergenceCost     = 0.25
	MismatchCost       = 1.0
)

// Step is one alignment operation with its cost.
type Step struct {
	Kind     StepKind `json:"kind"`
	Position int      `json:"position"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Cost     float64  `json:"cost"`
}

// Result is the outcome of one pairwise distance computation.
type Result struct {
	Distance         float64 `json:"distance"`
	Similarity       float64 `json:"similarity"`
	ChainDepth       int     `json:"chain_depth"`
	SkeletonEqual    bool    `json:"skeleton_equal"`
	CrossScriptCount int     `json:"cross_script_count"`
	IgnorableCount   int     `json:"ignorable_count"`
	DivergenceCount  int     `json:"divergence_count"`
	Steps            []Step  `json:"steps,omitempty"`
}

// Options configure a distance computation.
type Options struct {
	// Variant selects the active mapping table. Empty means Filtered.
	Variant confusables.Variant
	// Weights is an optional measured visual-weight overlay.
	Weights *VisualWeights
	// Context scopes which weight entries are eligible. Empty means any.
	Context WeightContext
}

// Compute returns the confusable distance between two strings. Symmetric:
// Compute(a,b) and Compute(b,a) yield the same distance. Bounded at
// MismatchCost per aligned position, so Distance <= max(len(a), len(b)).
func Compute(a, b string, opts Options) Result {
	variant := opts.Variant
	if variant == "" {
		variant = confusables.Filtered
	}
	active := confusables.Get(variant)
	full := confusables.Get(confusables.Full)

	ra, strippedA := stripIgnorables(a)
	rb, strippedB := stripIgnorables(b)

	res := Result{
		SkeletonEqual: confusables.AreConfusable(a, b, variant),
	}

	// Each stripped ignorable is an unmatched insertion at some position.
	for _, ig := range append(strippedA, strippedB...) {
		res.Steps = append(res.Steps, Step{
			Kind:     StepIgnorable,
			Position: ig.pos,
			From:     string(ig.r),
			Cost:     IgnorableCost,
		})
		res.IgnorableCount++
	}

	n := len(ra)
	if len(rb) > n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(ra):
			res.Steps = append(res.Steps, alignTail(i, rb[i]))
		case i >= len(rb):
			res.Steps = append(res.Steps, alignTail(i, ra[i]))
		default:
			res.Steps = append(res.Steps, alignPair(i, ra[i], rb[i], active, full, opts))
		}
	}

	for _, s := range res.Steps {
		res.Distance += s.Cost
		if s.Kind != StepExact {
			res.ChainDepth++
		}
		switch s.Kind {
		case StepDivergence:
			res.DivergenceCount++
		case StepConfusable, StepVisualWeight:
			if len(s.From) > 0 && len(s.To) > 0 &&
				confusables.CrossScript(firstRune(s.From), firstRune(s.To)) {
				res.CrossScriptCount++
			}
		}
	}

	res.Similarity = 1.0 / (1.0 + res.Distance)
	return res
}

// alignPair classifies one aligned code point pair and prices it.
func alignPair(pos int, x, y rune, active, full *confusables.Table, opts Options) Step {
	step := Step{Position: pos, From: string(x), To: string(y)}

	if x == y || unicode.ToLower(x) == unicode.ToLower(y) {
		step.Kind = StepExact
		return step
	}

	cx, cy := active.Resolve(x), active.Resolve(y)
	if cx != 0 && cx == cy {
		// Both sides collapse to the same canonical character under the
		// active table: a confusable substitution.
		if opts.Weights != nil {
			if cost, ok := opts.Weights.Lookup(x, y, opts.Context); ok {
				step.Kind = StepVisualWeight
				step.Cost = cost
				return step
			}
		}
		step.Kind = StepConfusable
		step.Cost = ConfusableCost
		if confusables.CrossScript(x, y) {
			step.Cost += CrossScriptPremium
		}
		return step
	}

	if active.Variant() == confusables.Filtered {
		fx, fy := full.Resolve(x), full.Resolve(y)
		if fx != 0 && fx == fy {
			// The pair disagrees under Filtered but agrees under Full:
			// normalization divergence.
			step.Kind = StepDivergence
			step.Cost = DivergenceCost
			return step
		}
	}

	step.Kind = StepMismatch
	step.Cost = MismatchCost
	return step
}

// alignTail prices a surplus position present on only one side.
func alignTail(pos int, r rune) Step {
	return Step{
		Kind:     StepMismatch,
		Position: pos,
		From:     string(r),
		Cost:     MismatchCost,
	}
}

type stripped struct {
	r   rune
	pos int
}

// stripIgnorables decomposes canonically and removes ignorable code points,
// recording each removal with the position it occupied.
func stripIgnorables(s string) ([]rune, []stripped) {
	kept := make([]rune, 0, len(s))
	var removed []stripped
	for _, r := range norm.NFD.String(s) {
		if confusables.IsIgnorable(r) {
			removed = append(removed, stripped{r: r, pos: len(kept)})
			continue
		}
		kept = append(kept, r)
	}
	return kept, removed
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// Bound returns the maximum possible distance for the given pair: one
// mismatch ceiling per aligned position.
func Bound(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	return MismatchCost * math.Max(float64(la), float64(lb))
}
