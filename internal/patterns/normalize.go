package patterns

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var monthTokens = map[string]struct{}{}

func init() {
	for _, m := range []string{
		"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto",
		"septiembre", "setiembre", "octubre", "noviembre", "diciembre",
		"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "sept", "oct", "nov", "dic",
		"january", "february", "march", "april", "june", "july", "august",
		"september", "october", "november", "december",
		"jan", "apr", "aug", "dec",
	} {
		monthTokens[m] = struct{}{}
	}
}

// Normalize builds the grouping concept for a description: lowercased,
// accents folded, month-name tokens and trailing digits removed.
//
//	Normalize("Netflix Marzo 2024")  -> "netflix"
//	Normalize("Pago CFE  #0412")     -> "pago cfe"
//	Normalize("Súper Chedraui")      -> "super chedraui"
func Normalize(description string) string {
	s := foldAccents(strings.ToLower(description))

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		token := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if _, isMonth := monthTokens[token]; isMonth {
			continue
		}
		kept = append(kept, f)
	}
	s = strings.Join(kept, " ")

	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune("#-/.:_*", r)
	})
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
