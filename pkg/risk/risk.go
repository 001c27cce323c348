// Package risk turns pairwise confusable distances into a bounded 0-100
// impersonation risk score with an allow/warn/block decision. An identifier
// is as risky as its single most dangerous collision with a protected
// target; everything else is presentation.
package risk

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/paultendo/namespace-guard-sub000/pkg/confusables"
	"github.com/paultendo/namespace-guard-sub000/pkg/distance"

	"golang.org/x/text/unicode/norm"
)

// Action is the three-way decision derived from the score thresholds.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Level is the coarse risk band, for human-facing output.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Reason codes explain why an identifier scored against a target.
type Reason string

const (
	ReasonExactMatch  Reason = "exact-target-match"
	ReasonConfusable  Reason = "confusable-target"
	ReasonInvisible   Reason = "invisible-character"
	ReasonMixedScript Reason = "mixed-script"
	ReasonDivergent   Reason = "nfkc-divergent"
)

const (
	// DefaultWarnThreshold and DefaultBlockThreshold are the uncalibrated
	// starting points; the calibrate tool fits better ones to labeled data.
	DefaultWarnThreshold  = 25.0
	DefaultBlockThreshold = 60.0
	DefaultMaxMatches     = 5

	// scoreDecay maps distance to score: 100*exp(-scoreDecay*d). Chosen so a
	// single cross-script confusable substitution still scores above 80 and
	// two character-equivalents of distance decay below 10.
	scoreDecay = 1.4

	// matchFloor drops negligible matches from the presented list. The
	// aggregate score is a max, so filtering never changes it.
	matchFloor = 0.5
)

// identifier grammar: conventional handle rules, ASCII only.
var reValidFormat = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9_-]{0,37}$`)

// Options configure one risk check.
type Options struct {
	// Protect lists the explicitly protected target strings.
	Protect []string
	// IncludeReserved appends the built-in reserved-name list to Protect.
	IncludeReserved bool
	// WarnThreshold and BlockThreshold are scores in [0,100]; nil means the
	// package default. Zero is a real threshold: every score classifies at or
	// above it. BlockThreshold is clamped up to WarnThreshold.
	WarnThreshold  *float64
	BlockThreshold *float64
	// MaxMatches caps the presented match list only, never the score.
	MaxMatches int
	// Variant selects the mapping table; empty means Filtered.
	Variant confusables.Variant
	// Weights is an optional measured visual-weight overlay.
	Weights *distance.VisualWeights
}

// Threshold returns a pointer to v, for setting Options thresholds inline.
func Threshold(v float64) *float64 {
	return &v
}

// DefaultOptions returns the options the CLI starts from: reserved names
// included, package default thresholds.
func DefaultOptions() Options {
	return Options{
		IncludeReserved: true,
		WarnThreshold:   Threshold(DefaultWarnThreshold),
		BlockThreshold:  Threshold(DefaultBlockThreshold),
		MaxMatches:      DefaultMaxMatches,
		Variant:         confusables.Filtered,
	}
}

// Match is one protected target's contribution to the assessment.
type Match struct {
	Target        string   `json:"target"`
	Score         float64  `json:"score"`
	Distance      float64  `json:"distance"`
	ChainDepth    int      `json:"chain_depth"`
	SkeletonEqual bool     `json:"skeleton_equal"`
	Reasons       []Reason `json:"reasons"`
}

// Assessment is the full result of one risk check. Ephemeral: constructed
// fresh per invocation, safe to share across goroutines.
type Assessment struct {
	Input        string   `json:"input"`
	Normalized   string   `json:"normalized"`
	Score        float64  `json:"score"`
	Action       Action   `json:"action"`
	Level        Level    `json:"level"`
	FormatValid  bool     `json:"format_valid"`
	Matches      []Match  `json:"matches"`
	TotalMatches int      `json:"total_matches"`
	Reasons      []Reason `json:"reasons"`
}

// Normalize produces the canonical comparison form of an identifier:
// trimmed, NFC-composed, lowercased.
func Normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// ValidFormat reports whether an identifier satisfies the conventional
// ASCII handle grammar (leading alphanumeric, then alphanumerics, hyphen or
// underscore, at most 38 characters).
func ValidFormat(s string) bool {
	return reValidFormat.MatchString(s)
}

// Check assesses one identifier against a set of protected targets.
// Pure and synchronous: no I/O, no shared mutable state.
func Check(identifier string, opts Options) Assessment {
	opts = withDefaults(opts)
	normalized := Normalize(identifier)
	mixedScript := confusables.IsMixedScript(identifier)

	a := Assessment{
		Input:       identifier,
		Normalized:  normalized,
		Action:      ActionAllow,
		Level:       LevelLow,
		FormatValid: ValidFormat(identifier),
	}

	var matches []Match
	for _, target := range gatherTargets(opts) {
		m, ok := scoreTarget(normalized, target, mixedScript, opts)
		if !ok {
			continue
		}
		if m.Score > a.Score {
			a.Score = m.Score
		}
		if m.Score >= matchFloor {
			matches = append(matches, m)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ChainDepth != matches[j].ChainDepth {
			return matches[i].ChainDepth < matches[j].ChainDepth
		}
		return matches[i].Target < matches[j].Target
	})

	a.TotalMatches = len(matches)
	seen := make(map[Reason]struct{})
	for _, m := range matches {
		for _, r := range m.Reasons {
			if _, dup := seen[r]; !dup {
				seen[r] = struct{}{}
				a.Reasons = append(a.Reasons, r)
			}
		}
	}
	if len(matches) > opts.MaxMatches {
		matches = matches[:opts.MaxMatches]
	}
	a.Matches = matches

	a.Score = clamp(a.Score, 0, 100)
	warn, block := opts.thresholds()
	switch {
	case a.Score >= block:
		a.Action = ActionBlock
	case a.Score >= warn:
		a.Action = ActionWarn
	}
	a.Level = levelFor(a.Score, warn, block)
	return a
}

// scoreTarget prices one identifier/target pair. Returns ok=false for empty
// targets.
func scoreTarget(normalized, target string, mixedScript bool, opts Options) (Match, bool) {
	nt := Normalize(target)
	if nt == "" {
		return Match{}, false
	}

	if nt == normalized {
		return Match{
			Target:        target,
			Score:         100,
			Distance:      0,
			SkeletonEqual: true,
			Reasons:       []Reason{ReasonExactMatch},
		}, true
	}

	res := distance.Compute(normalized, nt, distance.Options{
		Variant: opts.Variant,
		Weights: opts.Weights,
		Context: distance.ContextIdentifier,
	})

	m := Match{
		Target:        target,
		Score:         scoreFromDistance(res.Distance),
		Distance:      res.Distance,
		ChainDepth:    res.ChainDepth,
		SkeletonEqual: res.SkeletonEqual,
	}

	confusable := res.SkeletonEqual
	for _, s := range res.Steps {
		if s.Kind == distance.StepConfusable || s.Kind == distance.StepVisualWeight {
			confusable = true
		}
	}
	if confusable {
		m.Reasons = append(m.Reasons, ReasonConfusable)
	}
	if res.IgnorableCount > 0 {
		m.Reasons = append(m.Reasons, ReasonInvisible)
	}
	if mixedScript && res.CrossScriptCount > 0 {
		m.Reasons = append(m.Reasons, ReasonMixedScript)
	}
	if res.DivergenceCount > 0 {
		m.Reasons = append(m.Reasons, ReasonDivergent)
	}
	return m, true
}

// scoreFromDistance maps a distance into [0,100], monotone decreasing:
// 100 at distance 0, decaying toward 0 past roughly two character-equivalents.
func scoreFromDistance(d float64) float64 {
	return clamp(100*math.Exp(-scoreDecay*d), 0, 100)
}

func gatherTargets(opts Options) []string {
	targets := make([]string, 0, len(opts.Protect)+len(reservedNames))
	seen := make(map[string]struct{})
	add := func(list []string) {
		for _, t := range list {
			key := Normalize(t)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			targets = append(targets, t)
		}
	}
	add(opts.Protect)
	if opts.IncludeReserved {
		add(reservedNames)
	}
	return targets
}

func withDefaults(opts Options) Options {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = DefaultMaxMatches
	}
	if opts.Variant == "" {
		opts.Variant = confusables.Filtered
	}
	return opts
}

// thresholds resolves the optional fields to concrete values, keeping the
// block >= warn invariant.
func (o Options) thresholds() (warn, block float64) {
	warn, block = DefaultWarnThreshold, DefaultBlockThreshold
	if o.WarnThreshold != nil {
		warn = *o.WarnThreshold
	}
	if o.BlockThreshold != nil {
		block = *o.BlockThreshold
	}
	if block < warn {
		block = warn
	}
	return warn, block
}

func levelFor(score, warn, block float64) Level {
	switch {
	case score >= 90:
		return LevelCritical
	case score >= block:
		return LevelHigh
	case score >= warn:
		return LevelMedium
	default:
		return LevelLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
