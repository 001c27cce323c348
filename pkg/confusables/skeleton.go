package confusables

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ignorableSet holds the fixed set of default-ignorable code points that are
// deleted before comparison: zero-width characters, directional marks and
// overrides, the byte-order mark, variation selectors, tag characters,
// Hangul fillers and the soft hyphen. Format (Cf) and control (Cc) code
// points outside this set are dropped as well.
var ignorableSet = map[rune]struct{}{
	0x00AD: {}, // soft hyphen
	0x034F: {}, // combining grapheme joiner
	0x115F: {}, // Hangul choseong filler
	0x1160: {}, // Hangul jungseong filler
	0x180E: {}, // Mongolian vowel separator
	0x200B: {}, // zero width space
	0x200C: {}, // zero width non-joiner
	0x200D: {}, // zero width joiner
	0x200E: {}, // left-to-right mark
	0x200F: {}, // right-to-left mark
	0x202A: {}, // left-to-right embedding
	0x202B: {}, // right-to-left embedding
	0x202C: {}, // pop directional formatting
	0x202D: {}, // left-to-right override
	0x202E: {}, // right-to-left override
	0x2060: {}, // word joiner
	0x2066: {}, // left-to-right isolate
	0x2067: {}, // right-to-left isolate
	0x2068: {}, // first strong isolate
	0x2069: {}, // pop directional isolate
	0x3164: {}, // Hangul filler
	0xFEFF: {}, // byte-order mark / zero width no-break space
	0xFFA0: {}, // halfwidth Hangul filler
}

// IsIgnorable reports whether a code point is deleted during skeleton
// computation and ignorable-stripping in the distance metric.
func IsIgnorable(r rune) bool {
	if _, ok := ignorableSet[r]; ok {
		return true
	}
	if r >= 0xFE00 && r <= 0xFE0F {
		return true // variation selectors
	}
	if r >= 0xE0000 && r <= 0xE01EF {
		return true // tag characters and variation selector supplement
	}
	return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r)
}

// Skeleton reduces a string to its canonical visual representative:
// canonical decomposition, deletion of ignorable characters, per code point
// confusable substitution, lowercasing. Two strings with equal skeletons are
// visually indistinguishable under the chosen mapping variant.
//
// Pure and total: empty or all-ignorable input yields the empty string, and
// code points outside the mapping pass through unchanged.
func Skeleton(s string, v Variant) string {
	t := Get(v)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if IsIgnorable(r) {
			continue
		}
		if c, ok := t.mapping[r]; ok {
			r = c
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// AreConfusable reports whether two strings are visually indistinguishable,
// i.e. whether their skeletons agree. Symmetric and reflexive.
func AreConfusable(a, b string, v Variant) bool {
	return Skeleton(a, v) == Skeleton(b, v)
}
