package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaces        = regexp.MustCompile(`\s+`)
	parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	dependingOn   = regexp.MustCompile(`\s*[-,]?\s*\b(dependendo d[aeo]s?|depending on|a depender d[aeo]s?)\b.*$`)
)

// stopwords ignoradas na comparação por tokens
var stopwords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "e": true, "de": true, "da": true, "do": true,
	"das": true, "dos": true, "com": true, "para": true, "pra": true, "no": true, "na": true,
	"nos": true, "nas": true, "em": true, "um": true, "uma": true, "the": true, "of": true,
}

// Normalize converte para minúsculas, remove acentos e espaços extras
func Normalize(s string) string {
	// transform.Chain guarda estado, então criamos um por chamada
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = spaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Tokens divide um texto normalizado em palavras, sem stopwords
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

// StripQualifiers remove apartes entre parênteses e cláusulas "dependendo de ..."
func StripQualifiers(s string) string {
	s = parenthetical.ReplaceAllString(Normalize(s), " ")
	s = dependingOn.ReplaceAllString(s, "")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// FirstWord retorna a primeira palavra significativa (fora stopwords) do texto
func FirstWord(s string) string {
	toks := Tokens(StripQualifiers(s))
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}
