package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
)

// EventLister é a parte do colaborador de agenda usada na verificação
type EventLister interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

// Config controla jornada, janela de busca e avisos
type Config struct {
	DefaultDuration time.Duration
	WorkStartHour   int
	WorkEndHour     int
	WarnStartHour   int
	WarnEndHour     int
	SearchDays      int
	MaxSuggestions  int
}

// DefaultConfig: 60 min, jornada 08-20, avisos fora de 07-22, 3 dias, 3 sugestões
func DefaultConfig() Config {
	return Config{
		DefaultDuration: 60 * time.Minute,
		WorkStartHour:   8,
		WorkEndHour:     20,
		WarnStartHour:   7,
		WarnEndHour:     22,
		SearchDays:      3,
		MaxSuggestions:  3,
	}
}

// WarningKind classifica os avisos que não bloqueiam a criação
type WarningKind string

const (
	WarnOutsideHours WarningKind = "outside_hours"
	WarnWeekend      WarningKind = "weekend"
	WarnPast         WarningKind = "past"
	WarnEmptyDay     WarningKind = "empty_day"
)

type Warning struct {
	Kind    WarningKind
	Message string
}

// Result é o resultado da verificação de um horário proposto
type Result struct {
	Start       time.Time
	End         time.Time
	HasConflict bool
	Conflicts   []calendar.Event
	Suggestions []calendar.Slot
	Warnings    []Warning
}

// Engine detecta sobreposição com compromissos existentes e sugere alternativas
type Engine struct {
	events EventLister
	config Config
	now    func() time.Time
}

func NewEngine(events EventLister, config Config, now func() time.Time) *Engine {
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = 60 * time.Minute
	}
	if config.MaxSuggestions <= 0 {
		config.MaxSuggestions = 3
	}
	if config.SearchDays <= 0 {
		config.SearchDays = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{events: events, config: config, now: now}
}

// DefaultDuration é a duração usada quando o fim não é informado
func (e *Engine) DefaultDuration() time.Duration {
	return e.config.DefaultDuration
}

// Check verifica [start, end). Sem fim, usa a duração padrão. Eventos de dia
// inteiro não contam como conflito para propostas com horário, e propostas de
// dia inteiro só recebem avisos. Erro ao buscar a agenda é propagado.
func (e *Engine) Check(ctx context.Context, start, end time.Time, allDay bool) (Result, error) {
	if allDay {
		if end.IsZero() || !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	} else if end.IsZero() || !end.After(start) {
		end = start.Add(e.config.DefaultDuration)
	}

	dayStart, _ := calendar.DayBounds(start)
	windowEnd := dayStart.AddDate(0, 0, e.config.SearchDays)
	if windowEnd.Before(end) {
		windowEnd = end
	}

	existing, err := e.events.ListEvents(ctx, dayStart, windowEnd)
	if err != nil {
		return Result{}, fmt.Errorf("erro ao buscar compromissos: %w", err)
	}

	res := Result{Start: start, End: end}
	res.Warnings = e.warnings(start, end, allDay, existing)
	if allDay {
		return res, nil
	}

	busy := timed(existing)
	for _, ev := range busy {
		if ev.Overlaps(start, end) {
			res.Conflicts = append(res.Conflicts, ev)
		}
	}
	if len(res.Conflicts) == 0 {
		return res, nil
	}

	res.HasConflict = true
	res.Suggestions = e.suggest(start, end.Sub(start), windowEnd, busy)
	return res, nil
}

// timed filtra eventos de dia inteiro e ordena por início
func timed(events []calendar.Event) []calendar.Event {
	out := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		if !ev.AllDay {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// suggest avança a partir do horário pedido, pulando para o fim de cada
// compromisso que bloqueia, dentro da jornada e da janela de busca
func (e *Engine) suggest(from time.Time, dur time.Duration, windowEnd time.Time, busy []calendar.Event) []calendar.Slot {
	var out []calendar.Slot
	now := e.now()
	t := from

	for t.Before(windowEnd) && len(out) < e.config.MaxSuggestions {
		t = e.clampToWorkHours(t, dur)
		if !t.Before(windowEnd) {
			break
		}
		if t.Before(now) {
			t = roundUp(now, 15*time.Minute)
			continue
		}

		end := t.Add(dur)
		if blocker, ok := firstOverlap(busy, t, end); ok {
			t = blocker.End
			continue
		}

		out = append(out, calendar.Slot{Start: t, End: end})
		t = end
	}
	return out
}

func (e *Engine) clampToWorkHours(t time.Time, dur time.Duration) time.Time {
	day, _ := calendar.DayBounds(t)
	workStart := day.Add(time.Duration(e.config.WorkStartHour) * time.Hour)
	workEnd := day.Add(time.Duration(e.config.WorkEndHour) * time.Hour)

	if t.Before(workStart) {
		return workStart
	}
	if t.Add(dur).After(workEnd) {
		return workStart.AddDate(0, 0, 1)
	}
	return t
}

func firstOverlap(busy []calendar.Event, start, end time.Time) (calendar.Event, bool) {
	var found calendar.Event
	ok := false
	for _, ev := range busy {
		if ev.Overlaps(start, end) && (!ok || ev.End.After(found.End)) {
			found = ev
			ok = true
		}
	}
	return found, ok
}

func roundUp(t time.Time, step time.Duration) time.Time {
	r := t.Truncate(step)
	if r.Before(t) {
		r = r.Add(step)
	}
	return r
}

func (e *Engine) warnings(start, end time.Time, allDay bool, existing []calendar.Event) []Warning {
	var out []Warning
	now := e.now()

	if !allDay {
		day, _ := calendar.DayBounds(start)
		warnStart := day.Add(time.Duration(e.config.WarnStartHour) * time.Hour)
		warnEnd := day.Add(time.Duration(e.config.WarnEndHour) * time.Hour)
		if start.Before(warnStart) || end.After(warnEnd) {
			out = append(out, Warning{Kind: WarnOutsideHours, Message: fmt.Sprintf("Horário fora do comum (%s)", start.Format("15:04"))})
		}
		if start.Before(now) {
			out = append(out, Warning{Kind: WarnPast, Message: "Esse horário já passou"})
		}
	} else if start.Before(calendarDay(now)) {
		out = append(out, Warning{Kind: WarnPast, Message: "Essa data já passou"})
	}

	if wd := start.Weekday(); wd == time.Saturday || wd == time.Sunday {
		out = append(out, Warning{Kind: WarnWeekend, Message: "Cai num fim de semana"})
	}

	dayStart, dayEnd := calendar.DayBounds(start)
	empty := true
	for _, ev := range existing {
		if ev.Overlaps(dayStart, dayEnd) {
			empty = false
			break
		}
	}
	if empty {
		out = append(out, Warning{Kind: WarnEmptyDay, Message: "Não há outros compromissos nesse dia"})
	}
	return out
}

func calendarDay(t time.Time) time.Time {
	d, _ := calendar.DayBounds(t)
	return d
}
