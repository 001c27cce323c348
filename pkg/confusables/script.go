package confusables

import "unicode"

// Script is a coarse script classification, just enough to flag mixed-script
// identifiers and to price cross-script substitutions. Full script
// identification is out of scope.
type Script int

const (
	ScriptCommon Script = iota // punctuation, symbols, unassigned
	ScriptDigit                // ASCII 0-9
	ScriptLatin
	ScriptCyrillic
	ScriptGreek
	ScriptOther // any other letter script
)

// ScriptOf classifies a single code point.
func ScriptOf(r rune) Script {
	switch {
	case r >= '0' && r <= '9':
		return ScriptDigit
	case unicode.Is(unicode.Latin, r):
		return ScriptLatin
	case unicode.Is(unicode.Cyrillic, r):
		return ScriptCyrillic
	case unicode.Is(unicode.Greek, r):
		return ScriptGreek
	case unicode.Is(unicode.Common, r):
		// Styled letters (mathematical alphanumerics, enclosed forms) carry
		// the Common script property; they are not a foreign script.
		return ScriptCommon
	case unicode.IsLetter(r):
		return ScriptOther
	default:
		return ScriptCommon
	}
}

// CrossScript reports whether two code points are letters from different
// concrete scripts. Digits and common code points never pay the cross-script
// premium: a digit-for-letter swap is priced by the mapping itself.
func CrossScript(a, b rune) bool {
	sa, sb := ScriptOf(a), ScriptOf(b)
	if sa < ScriptLatin || sb < ScriptLatin {
		return false
	}
	return sa != sb
}

// IsMixedScript reports whether a string mixes letters from more than one
// concrete script, a strong homoglyph signal (e.g. Latin and Cyrillic inside
// one identifier).
func IsMixedScript(s string) bool {
	seen := Script(-1)
	for _, r := range s {
		sc := ScriptOf(r)
		if sc < ScriptLatin {
			continue
		}
		if seen == -1 {
			seen = sc
			continue
		}
		if sc != seen {
			return true
		}
	}
	return false
}
