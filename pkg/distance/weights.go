package distance

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// WeightContext scopes a measured visual weight to a usage context. A weight
// recorded for domain-label rendering does not necessarily transfer to
// identifier rendering, so entries declare where they are valid.
type WeightContext string

const (
	ContextAny        WeightContext = "any"
	ContextIdentifier WeightContext = "identifier"
	ContextDomain     WeightContext = "domain"
)

// WeightEntry is one measured pairwise cost.
type WeightEntry struct {
	From    string        `yaml:"from" json:"from"`
	To      string        `yaml:"to" json:"to"`
	Context WeightContext `yaml:"context,omitempty" json:"context,omitempty"`
	Cost    float64       `yaml:"cost" json:"cost"`
}

// VisualWeights is a sparse overlay of empirically measured substitution
// costs. Lookups are symmetric in the pair and fall back from the requested
// context to context-free entries. The full code-point-pair space is far too
// large to materialize, hence the two-level map with explicit presence
// checks.
type VisualWeights struct {
	pairs map[rune]map[rune]map[WeightContext]float64
}

// NewVisualWeights builds an overlay from entries, validating each one.
func NewVisualWeights(entries []WeightEntry) (*VisualWeights, error) {
	w := &VisualWeights{pairs: make(map[rune]map[rune]map[WeightContext]float64)}
	for i, e := range entries {
		from, okF := singleRune(e.From)
		to, okT := singleRune(e.To)
		if !okF || !okT {
			return nil, fmt.Errorf("visual weight entry %d: from/to must each be a single character", i)
		}
		if e.Cost < 0 || e.Cost > MismatchCost {
			return nil, fmt.Errorf("visual weight entry %d: cost %.3f outside [0, %.1f]", i, e.Cost, MismatchCost)
		}
		ctx := e.Context
		if ctx == "" {
			ctx = ContextAny
		}
		w.insert(from, to, ctx, e.Cost)
	}
	return w, nil
}

// LoadVisualWeights reads a YAML overlay file of the form:
//
//	entries:
//	  - from: "а"
//	    to: "a"
//	    context: identifier
//	    cost: 0.04
func LoadVisualWeights(path string) (*VisualWeights, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read visual weights: %w", err)
	}
	var doc struct {
		Entries []WeightEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse visual weights: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("visual weights file %s has no entries", path)
	}
	return NewVisualWeights(doc.Entries)
}

// Lookup returns the measured cost for a pair if a context-eligible entry
// exists. Symmetric: (a,b) and (b,a) resolve identically.
func (w *VisualWeights) Lookup(from, to rune, ctx WeightContext) (float64, bool) {
	if w == nil {
		return 0, false
	}
	if ctx == "" {
		ctx = ContextAny
	}
	if c, ok := w.lookupDirected(from, to, ctx); ok {
		return c, true
	}
	return w.lookupDirected(to, from, ctx)
}

func (w *VisualWeights) lookupDirected(from, to rune, ctx WeightContext) (float64, bool) {
	byTo, ok := w.pairs[from]
	if !ok {
		return 0, false
	}
	byCtx, ok := byTo[to]
	if !ok {
		return 0, false
	}
	if c, ok := byCtx[ctx]; ok {
		return c, true
	}
	c, ok := byCtx[ContextAny]
	return c, ok
}

func (w *VisualWeights) insert(from, to rune, ctx WeightContext, cost float64) {
	byTo, ok := w.pairs[from]
	if !ok {
		byTo = make(map[rune]map[WeightContext]float64)
		w.pairs[from] = byTo
	}
	byCtx, ok := byTo[to]
	if !ok {
		byCtx = make(map[WeightContext]float64)
		byTo[to] = byCtx
	}
	byCtx[ctx] = cost
}

// Len returns the number of distinct (from, to, context) entries.
func (w *VisualWeights) Len() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, byTo := range w.pairs {
		for _, byCtx := range byTo {
			n += len(byCtx)
		}
	}
	return n
}

func singleRune(s string) (rune, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}
