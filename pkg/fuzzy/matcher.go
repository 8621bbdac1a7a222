package fuzzy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// Entity é qualquer objeto remoto que pode ser resolvido por nome
type Entity interface {
	DisplayName() string
	LastModified() time.Time
}

// Strategy identifica qual etapa da cascata encontrou o candidato
type Strategy string

const (
	StrategyNone          Strategy = ""
	StrategyNumericPrefix Strategy = "numeric_prefix"
	StrategyExact         Strategy = "exact"
	StrategyFuzzy         Strategy = "fuzzy"
	StrategySubstring     Strategy = "substring"
	StrategyFirstWord     Strategy = "first_word"
	StrategyRemote        Strategy = "remote"
)

// DefaultThreshold é a confiança mínima da etapa fuzzy
const DefaultThreshold = 0.6

// minFragment é o tamanho mínimo para contenção e primeira palavra
const minFragment = 3

// abaixo disso a distância de edição do texto inteiro não é confiável
// ("gato" e "pato" diferem numa letra só)
const minCharSimilarity = 5

var numericQuery = regexp.MustCompile(`^(?:(?:item|card|cartao|numero|number|num|n|no)\.?\s*)?#?\s*(\d{1,3})\.?$`)

// Option é um candidato genérico (listas, etiquetas)
type Option struct {
	ID       string
	Name     string
	Modified time.Time
}

func (o Option) DisplayName() string     { return o.Name }
func (o Option) LastModified() time.Time { return o.Modified }

// Matcher resolve uma referência em texto livre para um candidato
type Matcher struct {
	Threshold float64
}

// New cria um Matcher com o limiar padrão
func New() Matcher {
	return Matcher{Threshold: DefaultThreshold}
}

// Find aplica a cascata local: prefixo numérico, exato, fuzzy, contenção e primeira palavra
func Find[T Entity](m Matcher, query string, candidates []T) (T, Strategy, bool) {
	var zero T
	q := Normalize(query)
	if q == "" || len(candidates) == 0 {
		return zero, StrategyNone, false
	}

	if i, ok := numericPrefix(q, candidates); ok {
		return candidates[i], StrategyNumericPrefix, true
	}
	if i, ok := exact(q, candidates); ok {
		return candidates[i], StrategyExact, true
	}
	if i, ok := bestScore(m.threshold(), q, candidates); ok {
		return candidates[i], StrategyFuzzy, true
	}
	if i, ok := containment(q, candidates); ok {
		return candidates[i], StrategySubstring, true
	}
	if i, ok := firstWord(query, candidates); ok {
		return candidates[i], StrategyFirstWord, true
	}
	return zero, StrategyNone, false
}

// SearchFunc consulta o colaborador remoto quando a busca local falha
type SearchFunc[T Entity] func(ctx context.Context, query string) ([]T, error)

// Resolve é Find com busca remota como último recurso. Erros da busca remota
// contam como "não encontrado".
func Resolve[T Entity](ctx context.Context, m Matcher, query string, candidates []T, search SearchFunc[T]) (T, Strategy, bool) {
	if found, strategy, ok := Find(m, query, candidates); ok {
		return found, strategy, true
	}
	var zero T
	if search == nil || Normalize(query) == "" {
		return zero, StrategyNone, false
	}
	remote, err := search(ctx, query)
	if err != nil || len(remote) == 0 {
		return zero, StrategyNone, false
	}
	if found, _, ok := Find(m, query, remote); ok {
		return found, StrategyRemote, true
	}
	return zero, StrategyNone, false
}

// Score retorna a similaridade entre 0 e 1 de dois textos
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return similarity(na, nb, Tokens(na), Tokens(nb))
}

func similarity(a, b string, ta, tb []string) float64 {
	return max(tokenDice(ta, tb), charSimilarity(a, b))
}

func numericPrefix[T Entity](q string, candidates []T) (int, bool) {
	m := numericQuery.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	padded := fmt.Sprintf("%02d.", n)
	plain := fmt.Sprintf("%d.", n)

	var matches []int
	for i, c := range candidates {
		name := Normalize(c.DisplayName())
		if strings.HasPrefix(name, padded) || strings.HasPrefix(name, plain) {
			matches = append(matches, i)
		}
	}
	return pick(candidates, matches)
}

func exact[T Entity](q string, candidates []T) (int, bool) {
	var matches []int
	for i, c := range candidates {
		if Normalize(c.DisplayName()) == q {
			matches = append(matches, i)
		}
	}
	return pick(candidates, matches)
}

func (m Matcher) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

func bestScore[T Entity](threshold float64, q string, candidates []T) (int, bool) {
	qTokens := Tokens(q)
	best := -1.0
	var matches []int
	for i, c := range candidates {
		name := Normalize(c.DisplayName())
		if name == "" {
			continue
		}
		score := similarity(q, name, qTokens, Tokens(name))
		if score < threshold {
			continue
		}
		switch {
		case score > best+1e-9:
			best = score
			matches = []int{i}
		case score > best-1e-9:
			matches = append(matches, i)
		}
	}
	return pick(candidates, matches)
}

// containment aceita só palavras inteiras: os tokens de um lado precisam
// aparecer em sequência no outro
func containment[T Entity](q string, candidates []T) (int, bool) {
	if len([]rune(q)) < minFragment {
		return 0, false
	}
	qTokens := Tokens(q)
	var matches []int
	for i, c := range candidates {
		name := Normalize(c.DisplayName())
		if len([]rune(name)) < minFragment {
			continue
		}
		nTokens := Tokens(name)
		if containsRun(qTokens, nTokens) || containsRun(nTokens, qTokens) {
			matches = append(matches, i)
		}
	}
	return pick(candidates, matches)
}

// containsRun indica se sub aparece como sequência contígua de tokens em full
func containsRun(full, sub []string) bool {
	if len(sub) == 0 || len(sub) > len(full) {
		return false
	}
	for i := 0; i+len(sub) <= len(full); i++ {
		match := true
		for j, t := range sub {
			if full[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func firstWord[T Entity](query string, candidates []T) (int, bool) {
	w := FirstWord(query)
	if len([]rune(w)) < minFragment {
		return 0, false
	}
	var matches []int
	for i, c := range candidates {
		if FirstWord(c.DisplayName()) == w {
			matches = append(matches, i)
		}
	}
	return pick(candidates, matches)
}

// pick desempata pelo nome mais curto e depois pela modificação mais recente
func pick[T Entity](candidates []T, idx []int) (int, bool) {
	if len(idx) == 0 {
		return 0, false
	}
	best := idx[0]
	for _, i := range idx[1:] {
		a, b := candidates[i], candidates[best]
		la, lb := len([]rune(Normalize(a.DisplayName()))), len([]rune(Normalize(b.DisplayName())))
		if la < lb || (la == lb && a.LastModified().After(b.LastModified())) {
			best = i
		}
	}
	return best, true
}

// tokenDice compara conjuntos de palavras; palavras de 5+ letras toleram um erro de digitação
func tokenDice(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	used := make([]bool, len(b))
	common := 0
	for _, ta := range a {
		for j, tb := range b {
			if used[j] {
				continue
			}
			if ta == tb || (len(ta) >= minCharSimilarity && len(tb) >= minCharSimilarity && levenshtein.ComputeDistance(ta, tb) <= 1) {
				used[j] = true
				common++
				break
			}
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

func charSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if min(la, lb) < minCharSimilarity {
		return 0
	}
	longest := max(la, lb)
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
