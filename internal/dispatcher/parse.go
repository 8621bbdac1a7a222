package dispatcher

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
)

var (
	cancelWords = map[string]bool{
		"cancelar": true, "cancela": true, "cancel": true, "esquece": true,
		"deixa pra la": true, "deixa para la": true, "parar": true, "para": true,
	}
	yesWords = map[string]bool{
		"sim": true, "s": true, "confirmar": true, "confirmo": true, "confirma": true,
		"pode": true, "pode sim": true, "ok": true, "yes": true,
	}
	noWords = map[string]bool{
		"nao": true, "n": true, "no": true, "negativo": true, "cancelar": true, "cancela": true,
	}
	undoWords = map[string]bool{
		"desfazer": true, "/desfazer": true, "desfaz": true, "desfaca": true, "undo": true, "/undo": true,
	}
	keepWords = map[string]bool{
		"manter": true, "mantem": true, "mantenha": true, "assim mesmo": true, "mesmo assim": true,
		"pode criar": true, "criar assim mesmo": true,
	}
)

func key(text string) string {
	return strings.Trim(fuzzy.Normalize(text), ".!? ")
}

func isCancel(text string) bool      { return cancelWords[key(text)] }
func isYes(text string) bool         { return yesWords[key(text)] }
func isNo(text string) bool          { return noWords[key(text)] }
func isUndoCommand(text string) bool { return undoWords[key(text)] }
func isKeep(text string) bool        { return keepWords[key(text)] }

var (
	timeAnswer = regexp.MustCompile(`^(?:(hoje|amanha|depois de amanha|\d{1,2}/\d{1,2}(?:/\d{4})?)\s+)?(?:(?:as|a)\s+)?(\d{1,2})(?:[:h](\d{2}))?h?$`)
	dayMonth   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
)

// parseTimeAnswer lê "14:30", "14h", "14h30" ou "amanhã às 9h". Sem dia, usa o dia de base.
func parseTimeAnswer(text string, base, now time.Time) (time.Time, bool) {
	m := timeAnswer.FindStringSubmatch(key(text))
	if m == nil {
		return time.Time{}, false
	}

	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	day := base
	if m[1] != "" {
		d, ok := parseDay(m[1], now)
		if !ok {
			return time.Time{}, false
		}
		day = d
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), true
}

// parseDay aceita hoje, amanhã, depois de amanhã ou DD/MM[/AAAA]
func parseDay(s string, now time.Time) (time.Time, bool) {
	switch s {
	case "hoje":
		return now, true
	case "amanha":
		return now.AddDate(0, 0, 1), true
	case "depois de amanha":
		return now.AddDate(0, 0, 2), true
	}
	m := dayMonth.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseDateAnswer lê uma data de prazo; sem horário, o prazo fica ao meio-dia
func parseDateAnswer(text string, now time.Time) (time.Time, bool) {
	k := key(text)
	if t, ok := parseTimeAnswer(k, now, now); ok && strings.ContainsAny(k, ":h") {
		return t, true
	}
	if d, ok := parseDay(k, now); ok {
		return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, d.Location()), true
	}
	t, dateOnly, err := intent.ParseTime(strings.TrimSpace(text), now.Location())
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	if dateOnly {
		t = t.Add(12 * time.Hour)
	}
	return t, true
}

// parseChoice lê o número de uma opção entre 1 e n
func parseChoice(text string, n int) (int, bool) {
	k := strings.TrimPrefix(key(text), "opcao ")
	i, err := strconv.Atoi(strings.TrimSpace(k))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i, true
}

// splitItems separa itens de checklist por vírgula, ponto e vírgula ou linha
func splitItems(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "-•*"))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
