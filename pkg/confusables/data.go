package confusables

// Static confusable mapping data. Built offline from the Unicode security
// confusables reference data and curated by hand; each entry maps a single
// source code point to the lowercase Latin letter or digit it can impersonate
// in rendered text. Styled alphabets (mathematical alphanumerics, fullwidth,
// enclosed) are expanded from compact range descriptors at init instead of
// being spelled out entry by entry.

// curatedMappings are the hand-maintained single code point entries.
// Targets are always in [a-z0-9].
var curatedMappings = map[rune]rune{
	// ASCII lookalikes (leetspeak class). Compatibility normalization keeps
	// these as-is, so they live in the Full table only and form part of the
	// divergence set.
	'0': 'o',
	'1': 'l',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'9': 'g',
	'@': 'a',
	'$': 's',
	'|': 'l',

	// Cyrillic lowercase
	'а': 'a', // U+0430
	'в': 'b',
	'г': 'r',
	'е': 'e',
	'к': 'k',
	'м': 'm',
	'н': 'h',
	'о': 'o',
	'р': 'p',
	'с': 'c',
	'т': 't',
	'у': 'y',
	'х': 'x',
	'ь': 'b',
	'і': 'i',
	'ј': 'j',
	'ѕ': 's',
	'ѡ': 'w',
	'ԁ': 'd',
	'ԛ': 'q',
	'ԝ': 'w',
	'һ': 'h',

	// Cyrillic uppercase
	'А': 'a',
	'В': 'b',
	'Е': 'e',
	'З': '3',
	'К': 'k',
	'М': 'm',
	'Н': 'h',
	'О': 'o',
	'Р': 'p',
	'С': 'c',
	'Т': 't',
	'У': 'y',
	'Х': 'x',
	'Ч': '4',
	'Ь': 'b',
	'І': 'i',
	'Ј': 'j',
	'Ѕ': 's',
	'Ԁ': 'd',
	'Ԛ': 'q',
	'Ԝ': 'w',

	// Greek lowercase
	'α': 'a',
	'β': 'b',
	'γ': 'y',
	'ε': 'e',
	'η': 'n',
	'ι': 'i',
	'κ': 'k',
	'ν': 'v',
	'ο': 'o',
	'ρ': 'p',
	'ς': 's',
	'τ': 't',
	'υ': 'u',
	'χ': 'x',
	'ω': 'w',

	// Greek uppercase
	'Α': 'a',
	'Β': 'b',
	'Ε': 'e',
	'Ζ': 'z',
	'Η': 'h',
	'Ι': 'i',
	'Κ': 'k',
	'Μ': 'm',
	'Ν': 'n',
	'Ο': 'o',
	'Ρ': 'p',
	'Τ': 't',
	'Υ': 'y',
	'Χ': 'x',
	'Θ': '0',

	// Armenian
	'ո': 'n',
	'ս': 'u',
	'օ': 'o',
	'հ': 'h',
	'ց': 'g',

	// Cherokee (uppercase syllabary, visually Latin-like)
	'Ꭺ': 'a',
	'Ꭼ': 'e',
	'Ꮃ': 'w',
	'Ꮇ': 'm',
	'Ꮋ': 'h',
	'Ꮐ': 'g',
	'Ꮓ': 'z',
	'Ꮢ': 'r',
	'Ꮩ': 'v',
	'Ꮯ': 'c',
	'Ꮲ': 'p',
	'Ꭲ': 't',

	// Latin extended / IPA
	'ı': 'i', // dotless i
	'ȷ': 'j', // dotless j
	'ɑ': 'a', // latin alpha
	'ɡ': 'g', // script g
	'ɩ': 'i',
	'ʋ': 'v',
	'ⅼ': 'l', // roman numeral fifty (compat-normalizes to l)
	'ⅰ': 'i',
	'ⅴ': 'v',
	'ⅹ': 'x',
	'ℓ': 'l',
	'ℯ': 'e',
	'ℊ': 'g',
	'ℴ': 'o',
}

// styledRange describes a contiguous styled run that cycles through a
// canonical alphabet. Reserved holes inside mathematical alphanumeric runs
// are listed in styledHoles and skipped during expansion.
type styledRange struct {
	lo       rune
	length   int
	alphabet string // cycled across the run
}

const (
	lettersUpperLower = "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	lettersUpper      = "abcdefghijklmnopqrstuvwxyz"
	digits            = "0123456789"
	digitsOneUp       = "123456789"
)

var styledRanges = []styledRange{
	// Mathematical alphanumeric symbols: thirteen 52-rune A-Za-z styles.
	{0x1D400, 52, lettersUpperLower}, // bold
	{0x1D434, 52, lettersUpperLower}, // italic
	{0x1D468, 52, lettersUpperLower}, // bold italic
	{0x1D49C, 52, lettersUpperLower}, // script
	{0x1D4D0, 52, lettersUpperLower}, // bold script
	{0x1D504, 52, lettersUpperLower}, // fraktur
	{0x1D538, 52, lettersUpperLower}, // double-struck
	{0x1D56C, 52, lettersUpperLower}, // bold fraktur
	{0x1D5A0, 52, lettersUpperLower}, // sans-serif
	{0x1D5D4, 52, lettersUpperLower}, // sans-serif bold
	{0x1D608, 52, lettersUpperLower}, // sans-serif italic
	{0x1D63C, 52, lettersUpperLower}, // sans-serif bold italic
	{0x1D670, 52, lettersUpperLower}, // monospace

	// Mathematical digits: five 10-rune styles.
	{0x1D7CE, 10, digits}, // bold
	{0x1D7D8, 10, digits}, // double-struck
	{0x1D7E2, 10, digits}, // sans-serif
	{0x1D7EC, 10, digits}, // sans-serif bold
	{0x1D7F6, 10, digits}, // monospace

	// Fullwidth forms.
	{0xFF10, 10, digits},
	{0xFF21, 26, lettersUpper},
	{0xFF41, 26, lettersUpper},

	// Enclosed alphanumerics (circled).
	{0x2460, 9, digitsOneUp},
	{0x24B6, 26, lettersUpper},
	{0x24D0, 26, lettersUpper},
}

// styledHoles are code points reserved inside the mathematical alphanumeric
// block; they have no assigned character and must not appear in the table.
var styledHoles = map[rune]struct{}{
	0x1D455: {}, 0x1D49D: {}, 0x1D4A0: {}, 0x1D4A1: {}, 0x1D4A3: {},
	0x1D4A4: {}, 0x1D4A7: {}, 0x1D4A8: {}, 0x1D4AD: {}, 0x1D4BA: {},
	0x1D4BC: {}, 0x1D4C4: {}, 0x1D506: {}, 0x1D50B: {}, 0x1D50C: {},
	0x1D515: {}, 0x1D51D: {}, 0x1D53A: {}, 0x1D53F: {}, 0x1D545: {},
	0x1D547: {}, 0x1D548: {}, 0x1D549: {}, 0x1D551: {},
}

// expandMappings materializes the full source-to-canonical map from the
// curated entries plus the styled ranges, then closes it transitively so a
// target that is itself a source (e.g. З→3 while 3→e) resolves to its final
// representative. Closure keeps skeletons idempotent. Called once from the
// table builder.
func expandMappings() map[rune]rune {
	m := make(map[rune]rune, len(curatedMappings)+1024)
	for src, dst := range curatedMappings {
		m[src] = dst
	}
	for _, r := range styledRanges {
		alphabet := []rune(r.alphabet)
		for i := 0; i < r.length; i++ {
			src := r.lo + rune(i)
			if _, hole := styledHoles[src]; hole {
				continue
			}
			m[src] = alphabet[i%len(alphabet)]
		}
	}
	for src, dst := range m {
		for depth := 0; depth < 4; depth++ {
			next, ok := m[dst]
			if !ok {
				break
			}
			dst = next
		}
		m[src] = dst
	}
	return m
}
