package friends

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ligatures are the special cases that NFD decomposition does not expand
var ligatures = strings.NewReplacer(
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ß", "ss",
	"ø", "o", "Ø", "o",
)

// stripMarks decomposes accented characters and removes the combining marks
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeForSearch folds a name for accent-insensitive matching.
// "Mégane" -> "megane", "Müller" -> "muller".
func normalizeForSearch(s string) string {
	s = ligatures.Replace(s)

	folded, _, err := transform.String(stripMarks, s)
	if err == nil {
		s = folded
	}

	return strings.TrimSpace(strings.ToLower(s))
}
