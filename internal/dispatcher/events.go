package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
)

const (
	// janela padrão de busca quando o pedido não traz data
	resolveWindowDays = 14
	// janela da busca ampla, último recurso da resolução
	searchPastDays   = 30
	searchFutureDays = 60
)

func (d *Dispatcher) createEvent(ctx context.Context, userID string, v intent.CreateEvent) result {
	if v.Start.IsZero() {
		return failed("Para criar o evento preciso do dia e do horário. Ex.: \"Reunião amanhã às 14h\".")
	}
	if v.Summary == "" {
		v.Summary = "Compromisso"
	}

	check, err := call(ctx, d, "calendar", "conflict_check", func(ctx context.Context) (conflict.Result, error) {
		return d.conflicts.Check(ctx, v.Start, v.End, v.AllDay)
	})
	if err != nil {
		return d.failure(userID, "create_event", err)
	}

	in := calendar.EventInput{
		Summary:     v.Summary,
		Description: v.Description,
		Location:    v.Location,
		Start:       check.Start,
		End:         check.End,
		AllDay:      v.AllDay,
	}
	if !check.HasConflict {
		return d.insertEvent(ctx, userID, in, check.Warnings)
	}

	pendingEvent := &state.PendingEvent{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       in.Start,
		End:         in.End,
		Suggestions: check.Suggestions,
	}
	if err := d.flows.Await(ctx, userID, state.FlowState{PendingEvent: pendingEvent}); err != nil {
		return d.failure(userID, "create_event", err)
	}
	d.logger.Info("Conflito de horário, aguardando escolha",
		"user_id", userID,
		"summary", in.Summary,
		"conflicts", len(check.Conflicts),
		"suggestions", len(check.Suggestions))
	return d.conflictPrompt(*pendingEvent, check.Conflicts)
}

// insertEvent cria o evento, registra no histórico e invalida o cache
func (d *Dispatcher) insertEvent(ctx context.Context, userID string, in calendar.EventInput, warnings []conflict.Warning) result {
	ev, err := call(ctx, d, "calendar", "create_event", func(ctx context.Context) (calendar.Event, error) {
		return d.events.CreateEvent(ctx, in)
	})
	if err != nil {
		return d.failure(userID, "create_event", err)
	}

	d.history.Record(ctx, userID, "create_event", eventRef{ID: ev.ID, Summary: ev.Summary, Start: ev.Start}, ev.ID)
	d.invalidate(cache.ScopeEvents)
	d.logger.Info("Evento criado", "user_id", userID, "entity_id", ev.ID)

	when := "📅 " + formatDate(in.Start.In(d.loc)) + " (dia inteiro)"
	if !in.AllDay {
		when = "📅 " + formatDateTime(in.Start.In(d.loc)) + "–" + formatClock(in.End.In(d.loc))
	}
	text := fmt.Sprintf("✅ Evento criado: %s\n%s", in.Summary, when)
	if in.Location != "" {
		text += "\n📍 " + in.Location
	}
	return done(text + formatWarnings(warnings))
}

func (d *Dispatcher) conflictPrompt(p state.PendingEvent, conflicts []calendar.Event) result {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ \"%s\" (%s) conflita com:\n", p.Summary, formatSlot(calendar.Slot{Start: p.Start.In(d.loc), End: p.End.In(d.loc)}))
	for _, ev := range conflicts {
		fmt.Fprintf(&b, "• %s (%s–%s)\n", ev.Summary, formatClock(ev.Start.In(d.loc)), formatClock(ev.End.In(d.loc)))
	}

	var rows [][]Button
	if len(p.Suggestions) > 0 {
		b.WriteString("\nHorários livres:\n")
		for i, s := range p.Suggestions {
			slot := calendar.Slot{Start: s.Start.In(d.loc), End: s.End.In(d.loc)}
			fmt.Fprintf(&b, "%d. %s\n", i+1, formatSlot(slot))
			rows = append(rows, []Button{{Text: fmt.Sprintf("%d. %s", i+1, formatSlot(slot)), Data: fmt.Sprintf("sg:%d", i+1)}})
		}
		b.WriteString("\nResponda com o número da opção, outro horário, \"manter\" ou \"cancelar\".")
	} else {
		b.WriteString("\nNão encontrei horários livres próximos. Responda com outro horário, \"manter\" ou \"cancelar\".")
	}
	rows = append(rows, []Button{
		{Text: "Manter horário", Data: "sg:keep"},
		{Text: "Cancelar", Data: "sg:cancel"},
	})
	return pending(b.String(), rows...)
}

// eventWindow é o intervalo de busca: o dia pedido ou os próximos dias
func (d *Dispatcher) eventWindow(date time.Time) (time.Time, time.Time) {
	if !date.IsZero() {
		return calendar.DayBounds(date.In(d.loc))
	}
	start, _ := calendar.DayBounds(d.nowLocal())
	return start, start.AddDate(0, 0, resolveWindowDays)
}

func (d *Dispatcher) fetchEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	events, err := call(ctx, d, "calendar", "list_events", func(ctx context.Context) ([]calendar.Event, error) {
		return d.events.ListEvents(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}

// resolveEvent acha o evento na janela e, se falhar, numa busca mais ampla
func (d *Dispatcher) resolveEvent(ctx context.Context, query string, date time.Time) (calendar.Event, bool, error) {
	from, to := d.eventWindow(date)
	events, err := d.fetchEvents(ctx, from, to)
	if err != nil {
		return calendar.Event{}, false, err
	}

	wide := func(ctx context.Context, _ string) ([]calendar.Event, error) {
		today, _ := calendar.DayBounds(d.nowLocal())
		return d.fetchEvents(ctx, today.AddDate(0, 0, -searchPastDays), today.AddDate(0, 0, searchFutureDays))
	}
	ev, strategy, found := fuzzy.Resolve(ctx, d.matcher, query, events, wide)
	if found {
		d.logger.Debug("Evento resolvido", "query", query, "entity_id", ev.ID, "strategy", string(strategy))
	}
	return ev, found, nil
}

func eventNotFound(query string) result {
	return notFound(fmt.Sprintf("Não encontrei o evento \"%s\" na sua agenda.", query))
}

func (d *Dispatcher) listEvents(ctx context.Context, v intent.ListEvents) result {
	today, _ := calendar.DayBounds(d.nowLocal())
	from, to := today, today.AddDate(0, 0, 1)
	label := "hoje"

	switch {
	case !v.Date.IsZero():
		from, to = calendar.DayBounds(v.Date.In(d.loc))
		label = formatDate(from)
	case v.Period == "tomorrow":
		from, to = today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)
		label = "amanhã"
	case v.Period == "week":
		to = today.AddDate(0, 0, 7)
		label = "os próximos 7 dias"
	}

	events, err := d.fetchEvents(ctx, from, to)
	if err != nil {
		return d.failure("", "list_events", err)
	}
	if len(events) == 0 {
		return done(fmt.Sprintf("📅 Nenhum compromisso para %s.", label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Agenda para %s:\n", label)
	multiDay := to.Sub(from) > 24*time.Hour
	var lastDay string
	for _, ev := range events {
		ev.Start, ev.End = ev.Start.In(d.loc), ev.End.In(d.loc)
		if multiDay {
			if day := formatDate(ev.Start); day != lastDay {
				fmt.Fprintf(&b, "\n%s\n", day)
				lastDay = day
			}
		}
		b.WriteString(formatEventLine(ev) + "\n")
	}
	return done(strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) updateEvent(ctx context.Context, userID string, v intent.UpdateEvent) result {
	ev, found, err := d.resolveEvent(ctx, v.Query, v.Date)
	if err != nil {
		return d.failure(userID, "update_event", err)
	}
	if !found {
		return eventNotFound(v.Query)
	}

	if !v.HasValue() {
		field := v.Field
		if field == "" {
			field = intent.FieldTime
		}
		p := &state.PendingEventUpdate{EventID: ev.ID, Summary: ev.Summary, Field: field, Start: ev.Start, End: ev.End}
		if err := d.flows.Await(ctx, userID, state.FlowState{PendingEventUpdate: p}); err != nil {
			return d.failure(userID, "update_event", err)
		}
		return pending(eventUpdateQuestion(*p))
	}

	var patch calendar.EventPatch
	if v.Summary != "" {
		patch.Summary = &v.Summary
	}
	if v.Location != "" {
		patch.Location = &v.Location
	}
	if !v.Start.IsZero() {
		start, end := v.Start, v.End
		if end.IsZero() || !end.After(start) {
			end = start.Add(ev.End.Sub(ev.Start))
		}
		patch.Start, patch.End = &start, &end
	}
	return d.patchEvent(ctx, userID, ev.ID, patch)
}

func (d *Dispatcher) patchEvent(ctx context.Context, userID, id string, patch calendar.EventPatch) result {
	updated, err := call(ctx, d, "calendar", "update_event", func(ctx context.Context) (calendar.Event, error) {
		return d.events.UpdateEvent(ctx, id, patch)
	})
	if err != nil {
		return d.failure(userID, "update_event", err)
	}
	d.invalidate(cache.ScopeEvents)

	text := "✏️ Evento atualizado: " + updated.Summary
	if patch.Start != nil {
		text += "\n📅 " + formatDateTime(updated.Start.In(d.loc))
	}
	if patch.Location != nil {
		text += "\n📍 " + updated.Location
	}
	return done(text)
}

func eventUpdateQuestion(p state.PendingEventUpdate) string {
	switch p.Field {
	case intent.FieldTitle:
		return fmt.Sprintf("Qual o novo título para \"%s\"?", p.Summary)
	case intent.FieldLocation:
		return fmt.Sprintf("Qual o novo local para \"%s\"?", p.Summary)
	}
	return fmt.Sprintf("Para qual horário devo mudar \"%s\"? Ex.: 15h, 15:30, amanhã às 9h.", p.Summary)
}

func (d *Dispatcher) deleteEvent(ctx context.Context, userID string, v intent.DeleteEvent) result {
	ev, found, err := d.resolveEvent(ctx, v.Query, v.Date)
	if err != nil {
		return d.failure(userID, "delete_event", err)
	}
	if !found {
		return eventNotFound(v.Query)
	}

	line := formatEventLine(calendar.Event{Summary: ev.Summary, Start: ev.Start.In(d.loc), End: ev.End.In(d.loc), AllDay: ev.AllDay})
	c, err := d.confirmations.Create(ctx, userID, "delete_event", eventRef{ID: ev.ID, Summary: ev.Summary, Start: ev.Start}, []string{line})
	if err != nil {
		return d.failure(userID, "delete_event", err)
	}
	metrics.RecordConfirmation(c.ActionType, "created")
	return pending(fmt.Sprintf("🗑️ Remover este evento de %s?\n%s", formatDate(ev.Start.In(d.loc)), line), confirmButtons(c.ID))
}

func (d *Dispatcher) completeEvent(ctx context.Context, userID string, v intent.CompleteEvent) result {
	ev, found, err := d.resolveEvent(ctx, v.Query, v.Date)
	if err != nil {
		return d.failure(userID, "complete_event", err)
	}
	if !found {
		return eventNotFound(v.Query)
	}
	if ev.Completed() {
		return done(fmt.Sprintf("O evento \"%s\" já está concluído.", ev.DisplayName()))
	}

	summary := calendar.CompletedPrefix + ev.Summary
	if _, err := call(ctx, d, "calendar", "update_event", func(ctx context.Context) (calendar.Event, error) {
		return d.events.UpdateEvent(ctx, ev.ID, calendar.EventPatch{Summary: &summary})
	}); err != nil {
		return d.failure(userID, "complete_event", err)
	}

	d.history.Record(ctx, userID, "complete_event", eventRef{ID: ev.ID, Summary: ev.Summary, Start: ev.Start}, ev.ID)
	d.invalidate(cache.ScopeEvents)
	return done("✅ Evento concluído: " + ev.Summary)
}

func (d *Dispatcher) completeAllEvents(ctx context.Context, userID string, v intent.CompleteAllEvents) result {
	date := v.Date
	if date.IsZero() {
		date = d.nowLocal()
	}
	from, to := calendar.DayBounds(date.In(d.loc))
	events, err := d.fetchEvents(ctx, from, to)
	if err != nil {
		return d.failure(userID, "complete_all_events", err)
	}

	payload := dayEvents{Date: from}
	var items []string
	for _, ev := range events {
		if ev.Completed() {
			continue
		}
		payload.Events = append(payload.Events, eventRef{ID: ev.ID, Summary: ev.Summary, Start: ev.Start})
		items = append(items, formatEventLine(calendar.Event{Summary: ev.Summary, Start: ev.Start.In(d.loc), End: ev.End.In(d.loc), AllDay: ev.AllDay}))
	}
	if len(payload.Events) == 0 {
		return done(fmt.Sprintf("Não há eventos pendentes em %s.", formatDate(from)))
	}

	c, err := d.confirmations.Create(ctx, userID, "complete_all_events", payload, items)
	if err != nil {
		return d.failure(userID, "complete_all_events", err)
	}
	metrics.RecordConfirmation(c.ActionType, "created")
	text := fmt.Sprintf("Marcar %s de %s como concluídos?\n%s",
		plural(len(items), "evento", "eventos"), formatDate(from), previewItems(items))
	return pending(text, confirmButtons(c.ID))
}
