package board

import (
	"regexp"
	"strings"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
)

// Fields são os dados estruturados encontrados na descrição de um card.
// Campos não encontrados ficam vazios.
type Fields struct {
	Client   string   `json:"client,omitempty"`
	CaseType string   `json:"case_type,omitempty"`
	Priority string   `json:"priority,omitempty"` // high, medium, low
	Pending  []string `json:"pending,omitempty"`
}

// Empty indica que nada foi extraído
func (f Fields) Empty() bool {
	return f.Client == "" && f.CaseType == "" && f.Priority == "" && len(f.Pending) == 0
}

var (
	clientLine   = fieldLine(`cliente|client`)
	caseTypeLine = fieldLine(`tipo(?:\s+de\s+(?:caso|a[cç][aã]o|processo))?|case\s+type|[aá]rea`)
	priorityLine = fieldLine(`prioridade|priority`)
	pendingHead  = regexp.MustCompile(`(?im)^[ \t*_#]*(pend[eê]ncias?|pendentes?|pending)[ \t*_]*:[ \t*_]*(.*)$`)
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|\[[ xX]?\])\s*(?:\[[ xX]?\]\s*)?(.+)$`)
)

func fieldLine(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t*_#-]*(?:` + labels + `)[ \t*_]*:[ \t*_]*(.+?)[ \t*_]*$`)
}

// ExtractStructuredFields procura cliente, tipo de caso, prioridade e pendências
// num texto livre. Nunca falha: devolve o que conseguir encontrar.
func ExtractStructuredFields(text string) Fields {
	var f Fields
	if strings.TrimSpace(text) == "" {
		return f
	}

	if m := clientLine.FindStringSubmatch(text); m != nil {
		f.Client = strings.TrimSpace(m[1])
	}
	if m := caseTypeLine.FindStringSubmatch(text); m != nil {
		f.CaseType = strings.TrimSpace(m[1])
	}
	if m := priorityLine.FindStringSubmatch(text); m != nil {
		f.Priority = NormalizePriority(m[1])
	}
	f.Pending = pendingItems(text)
	return f
}

// NormalizePriority reduz alta/média/baixa (e variações em inglês) a high, medium ou low.
func NormalizePriority(v string) string {
	switch n := fuzzy.Normalize(v); {
	case strings.HasPrefix(n, "alt"), strings.HasPrefix(n, "urg"), strings.HasPrefix(n, "high"):
		return "high"
	case strings.HasPrefix(n, "med"), strings.HasPrefix(n, "normal"):
		return "medium"
	case strings.HasPrefix(n, "baix"), strings.HasPrefix(n, "low"):
		return "low"
	}
	return ""
}

func pendingItems(text string) []string {
	loc := pendingHead.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}

	var items []string
	// itens na mesma linha: "Pendências: a; b"
	if inline := strings.TrimSpace(text[loc[4]:loc[5]]); inline != "" {
		for _, part := range strings.FieldsFunc(inline, func(r rune) bool { return r == ';' || r == ',' }) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}

	for _, line := range strings.Split(text[loc[1]:], "\n") {
		if strings.TrimSpace(line) == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}
