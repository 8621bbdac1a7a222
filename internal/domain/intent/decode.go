package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmpty é retornado quando o classificador não devolve nenhum registro
var ErrEmpty = errors.New("classificador não retornou intenções")

// record é o registro solto produzido pelo classificador
type record map[string]json.RawMessage

var layouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime aceita RFC3339, data-hora local ou só data (dia inteiro)
func ParseTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), false, nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("data inválida %q", s)
}

// Decode interpreta a saída do classificador no fuso local
func Decode(raw []byte) ([]Intent, error) {
	return DecodeIn(raw, time.Local)
}

// DecodeIn interpreta um objeto, um array de objetos ou {"intents": [...]}.
// Registros individuais com problema viram Invalid, sem derrubar os demais.
func DecodeIn(raw []byte, loc *time.Location) ([]Intent, error) {
	raw = stripFences(raw)
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	var records []record
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("erro ao decodificar intenções: %w", err)
		}
	case '{':
		var single record
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("erro ao decodificar intenção: %w", err)
		}
		if nested, ok := single["intents"]; ok {
			if err := json.Unmarshal(nested, &records); err != nil {
				return nil, fmt.Errorf("erro ao decodificar intenções: %w", err)
			}
		} else {
			records = []record{single}
		}
	default:
		return nil, fmt.Errorf("saída do classificador não é JSON: %.40q", raw)
	}

	if len(records) == 0 {
		return nil, ErrEmpty
	}

	out := make([]Intent, 0, len(records))
	for _, r := range records {
		out = append(out, r.decode(loc))
	}
	return out, nil
}

func stripFences(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if bytes.HasPrefix(raw, []byte("```")) {
		raw = bytes.TrimPrefix(raw, []byte("```json"))
		raw = bytes.TrimPrefix(raw, []byte("```"))
		raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
		raw = bytes.TrimSpace(raw)
	}
	return raw
}

func (r record) decode(loc *time.Location) Intent {
	typ := strings.ToLower(strings.TrimSpace(r.str("type", "intent", "action")))
	p := parser{r: r, loc: loc}

	var it Intent
	switch Kind(typ) {
	case KindCreateEvent:
		start, allDay := p.time("start", "start_time", "datetime", "date", "target_date")
		end, _ := p.time("end", "end_time")
		it = CreateEvent{
			Summary:     r.str("summary", "title", "name"),
			Description: r.str("description", "notes"),
			Location:    r.str("location"),
			Start:       start,
			End:         end,
			AllDay:      allDay,
		}
	case KindListEvents:
		date, _ := p.time("target_date", "date")
		it = ListEvents{Date: date, Period: strings.ToLower(r.str("period"))}
	case KindUpdateEvent:
		date, _ := p.time("target_date", "date")
		start, _ := p.time("new_start", "start")
		end, _ := p.time("new_end", "end")
		it = UpdateEvent{
			Query:    r.str("query", "event", "target"),
			Date:     date,
			Field:    normalizeField(r.str("field")),
			Summary:  r.str("new_summary", "new_title", "summary"),
			Location: r.str("new_location", "location"),
			Start:    start,
			End:      end,
		}
	case KindDeleteEvent:
		date, _ := p.time("target_date", "date")
		it = DeleteEvent{Query: r.str("query", "event", "summary"), Date: date}
	case KindCompleteEvent:
		date, _ := p.time("target_date", "date")
		it = CompleteEvent{Query: r.str("query", "event", "summary"), Date: date}
	case KindCompleteAllEvents:
		date, _ := p.time("target_date", "date")
		it = CompleteAllEvents{Date: date}

	case KindCreateTask:
		due, _ := p.time("due", "due_date", "target_date")
		it = CreateTask{Title: r.str("title", "summary", "name"), Notes: r.str("notes", "description"), Due: due}
	case KindListTasks:
		it = ListTasks{}
	case KindCompleteTask:
		it = CompleteTask{Query: r.str("query", "title")}
	case KindDeleteTask:
		it = DeleteTask{Query: r.str("query", "title")}

	case KindTrelloCreate:
		due, _ := p.time("due", "due_date")
		it = TrelloCreate{
			Name:        r.str("name", "title", "summary"),
			List:        r.str("list", "list_name"),
			Description: r.str("description", "desc"),
			Due:         due,
			Labels:      r.strs("labels", "label"),
			Priority:    r.str("priority", "prioridade"),
		}
	case KindTrelloList:
		it = TrelloList{List: r.str("list", "list_name")}
	case KindTrelloMove:
		it = TrelloMove{Query: r.str("query", "card"), List: r.str("list", "target_list", "list_name")}
	case KindTrelloUpdate:
		it = TrelloUpdate{
			Query:  r.str("query", "card"),
			Action: normalizeAction(r.str("action", "field")),
			Value:  r.str("value", "due", "description", "label", "items"),
		}
	case KindTrelloArchive:
		it = TrelloArchive{Query: r.str("query", "card")}
	case KindTrelloArchiveList:
		it = TrelloArchiveList{List: r.str("list", "list_name", "query")}
	case KindTrelloDelete:
		it = TrelloDelete{Query: r.str("query", "card")}
	case KindTrelloComment:
		it = TrelloComment{Query: r.str("query", "card"), Text: r.str("text", "comment")}
	case KindTrelloSearch:
		it = TrelloSearch{Query: r.str("query", "text")}
	case KindTrelloDetails:
		it = TrelloDetails{Query: r.str("query", "card")}

	case KindStoreMemory:
		it = StoreMemory{Content: r.str("content", "text", "value"), Category: r.str("category")}
	case KindQueryMemory:
		it = QueryMemory{Query: r.str("query", "text")}
	case KindListMemory:
		it = ListMemory{}
	case KindUpdateMemory:
		it = UpdateMemory{Query: r.str("query"), Content: r.str("content", "new_content", "value")}
	case KindDeleteMemory:
		it = DeleteMemory{Query: r.str("query")}

	case KindUndo:
		it = Undo{}
	case KindDaySummary:
		date, _ := p.time("target_date", "date")
		it = DaySummary{Date: date}
	case KindChat, "conversation", "fallback":
		it = Chat{Message: r.str("message", "response", "text")}
	default:
		it = Unknown{Type: typ, Message: r.str("message", "response", "text")}
	}

	if p.err != nil {
		return Invalid{Type: typ, Reason: p.err.Error()}
	}
	return it
}

type parser struct {
	r   record
	loc *time.Location
	err error
}

// time lê o primeiro campo de data presente; guarda o primeiro erro
func (p *parser) time(keys ...string) (time.Time, bool) {
	s := p.r.str(keys...)
	t, dateOnly, err := ParseTime(s, p.loc)
	if err != nil && p.err == nil {
		p.err = err
	}
	return t, dateOnly
}

// str retorna o primeiro campo não vazio; arrays viram a lista separada por vírgula
func (r record) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		if v := scalar(raw); v != "" {
			return v
		}
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil {
			var parts []string
			for _, item := range list {
				if v := scalar(item); v != "" {
					parts = append(parts, v)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	}
	return ""
}

// strs aceita array de strings ou uma string separada por vírgula
func (r record) strs(keys ...string) []string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil {
			var out []string
			for _, item := range list {
				if v := scalar(item); v != "" {
					out = append(out, v)
				}
			}
			if len(out) > 0 {
				return out
			}
			continue
		}
		if v := scalar(raw); v != "" {
			var out []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out
		}
	}
	return nil
}

func scalar(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func normalizeField(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "title", "titulo", "título", "summary", "nome", "name":
		return FieldTitle
	case "location", "local", "lugar":
		return FieldLocation
	case "time", "hora", "horario", "horário", "start", "data":
		return FieldTime
	}
	return ""
}

func normalizeAction(a string) string {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "due", "due_date", "prazo", "data", "vencimento":
		return ActionDue
	case "description", "desc", "descricao", "descrição":
		return ActionDescription
	case "label", "labels", "etiqueta", "tag":
		return ActionLabel
	case "checklist", "items", "itens":
		return ActionChecklist
	}
	return ""
}
