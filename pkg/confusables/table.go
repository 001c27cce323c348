// Package confusables provides the process-wide confusable character model:
// immutable code point mapping tables, visual skeleton computation, and the
// divergence set between the two table variants. All tables are built once at
// first use and are read-only afterwards, so every API in this package is safe
// for concurrent use without locking.
package confusables

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Variant selects which mapping table is in effect.
type Variant string

const (
	// Filtered excludes code points whose NFKC normalization already yields
	// the same canonical character, or a conflicting Latin/digit character.
	// This is the default table for risk decisions.
	Filtered Variant = "filtered"
	// Full includes every single-character mapping regardless of what
	// compatibility normalization does with the source code point.
	Full Variant = "full"
)

// ParseVariant validates a user-supplied variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Filtered:
		return Filtered, nil
	case Full:
		return Full, nil
	case "":
		return Filtered, nil
	default:
		return "", fmt.Errorf("unknown mapping variant %q (want %q or %q)", s, Filtered, Full)
	}
}

// Table is an immutable confusable mapping: source code point to one
// lowercase Latin letter or digit, plus the reverse index used by attack
// generation.
type Table struct {
	variant Variant
	mapping map[rune]rune
	reverse map[rune][]rune
}

// global singletons - built once on first access
var (
	buildOnce     sync.Once
	fullTable     *Table
	filteredTable *Table
	divergent     []rune
)

// Get returns the shared table for the given variant.
func Get(v Variant) *Table {
	buildOnce.Do(buildTables)
	if v == Full {
		return fullTable
	}
	return filteredTable
}

// DivergentCodePoints returns a sorted copy of every code point where the
// Filtered and Full variants disagree. The set is reproducible across runs
// and feeds the drift baseline corpus.
func DivergentCodePoints() []rune {
	buildOnce.Do(buildTables)
	out := make([]rune, len(divergent))
	copy(out, divergent)
	return out
}

func buildTables() {
	full := expandMappings()
	filtered := make(map[rune]rune, len(full))
	var div []rune

	for src, canon := range full {
		if nfkcHandles(src, canon) {
			div = append(div, src)
			continue
		}
		filtered[src] = canon
	}
	sort.Slice(div, func(i, j int) bool { return div[i] < div[j] })

	fullTable = newTable(Full, full)
	filteredTable = newTable(Filtered, filtered)
	divergent = div
}

// nfkcHandles reports whether compatibility normalization of src already
// yields the mapping's canonical character (same result), or a different
// valid Latin letter or digit (conflicting result). Either way the Filtered
// table leaves the code point to the normalizer.
func nfkcHandles(src, canon rune) bool {
	nfkc := []rune(strings.ToLower(norm.NFKC.String(string(src))))
	if len(nfkc) != 1 {
		return false
	}
	r := nfkc[0]
	if r == canon {
		return true // normalization already produces the target
	}
	return isCanonicalChar(r) // normalization produces a conflicting letter/digit
}

func isCanonicalChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func newTable(v Variant, mapping map[rune]rune) *Table {
	t := &Table{
		variant: v,
		mapping: mapping,
		reverse: make(map[rune][]rune),
	}
	for src, canon := range mapping {
		t.reverse[canon] = append(t.reverse[canon], src)
	}
	// ASCII sources first, then by code point: the deterministic bucket
	// order attack generation relies on.
	for canon := range t.reverse {
		bucket := t.reverse[canon]
		sort.Slice(bucket, func(i, j int) bool {
			ai, aj := bucket[i] < 128, bucket[j] < 128
			if ai != aj {
				return ai
			}
			return bucket[i] < bucket[j]
		})
	}
	return t
}

// Variant reports which variant this table implements.
func (t *Table) Variant() Variant { return t.variant }

// Len returns the number of mapping entries.
func (t *Table) Len() int { return len(t.mapping) }

// Canonical looks up the canonical character for a source code point.
func (t *Table) Canonical(r rune) (rune, bool) {
	c, ok := t.mapping[r]
	return c, ok
}

// Resolve maps a rune to its canonical representative: the table mapping if
// one exists (for the rune or its lowercase form), the rune itself if it is
// already a lowercase Latin letter or digit, otherwise 0.
func (t *Table) Resolve(r rune) rune {
	if c, ok := t.mapping[r]; ok {
		return c
	}
	lr := unicode.ToLower(r)
	if c, ok := t.mapping[lr]; ok {
		return c
	}
	if isCanonicalChar(lr) {
		return lr
	}
	return 0
}

// Sources returns the ordered replacement bucket for a canonical character:
// every source code point mapping to it, ASCII first, then by code point.
// The returned slice is shared and must not be mutated.
func (t *Table) Sources(canon rune) []rune {
	return t.reverse[canon]
}
