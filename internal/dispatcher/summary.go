package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
)

// daySummary junta agenda, tarefas e cards com prazo do dia. Uma fonte que
// falhar vira um aviso na resposta; as outras continuam.
func (d *Dispatcher) daySummary(ctx context.Context, v intent.DaySummary) result {
	date := v.Date
	if date.IsZero() {
		date = d.nowLocal()
	}
	from, to := calendar.DayBounds(date.In(d.loc))

	var b strings.Builder
	fmt.Fprintf(&b, "☀️ Resumo de %s\n", formatDate(from))
	failures := 0

	b.WriteString("\n📅 Agenda\n")
	if events, err := d.fetchEvents(ctx, from, to); err != nil {
		failures++
		d.logger.Warn("Erro ao carregar agenda para o resumo", "error", err)
		b.WriteString("(não consegui carregar a agenda)\n")
	} else if len(events) == 0 {
		b.WriteString("Nenhum compromisso.\n")
	} else {
		for _, ev := range events {
			ev.Start, ev.End = ev.Start.In(d.loc), ev.End.In(d.loc)
			b.WriteString(formatEventLine(ev) + "\n")
		}
	}

	b.WriteString("\n📝 Tarefas\n")
	if tasks, err := d.fetchTasks(ctx, false); err != nil {
		failures++
		d.logger.Warn("Erro ao carregar tarefas para o resumo", "error", err)
		b.WriteString("(não consegui carregar as tarefas)\n")
	} else {
		var due []calendar.Task
		for _, t := range tasks {
			if !t.Due.IsZero() && t.Due.Before(to) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			b.WriteString("Nenhuma tarefa para o dia.\n")
		}
		for _, t := range due {
			line := d.taskLine(t)
			if t.Due.Before(from) {
				line += " ⏰ atrasada"
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n📌 Cards com prazo\n")
	if cards, err := call(ctx, d, "trello", "list_cards", func(ctx context.Context) ([]board.Card, error) {
		return d.board.ListCards(ctx)
	}); err != nil {
		failures++
		d.logger.Warn("Erro ao carregar cards para o resumo", "error", err)
		b.WriteString("(não consegui carregar o quadro)\n")
	} else if due := dueOn(cards, from, to); len(due) == 0 {
		b.WriteString("Nenhum card vence no dia.\n")
	} else {
		for _, c := range due {
			b.WriteString(formatCard(c) + "\n")
		}
	}

	text := strings.TrimRight(b.String(), "\n")
	if failures == 3 {
		return failed(text)
	}
	return done(text)
}

// DaySummary responde o comando de resumo do dia sem passar pelo classificador
func (d *Dispatcher) DaySummary(ctx context.Context, userID string) Reply {
	unlock := d.locks.Lock(userID)
	defer unlock()
	return d.runIsolated(ctx, userID, intent.DaySummary{}).reply()
}

// Undo executa o desfazer explícito (comando /desfazer)
func (d *Dispatcher) Undo(ctx context.Context, userID string) Reply {
	unlock := d.locks.Lock(userID)
	defer unlock()
	return d.runIsolated(ctx, userID, intent.Undo{}).reply()
}

// Help devolve o texto de ajuda
func (d *Dispatcher) Help() string {
	return helpText
}
