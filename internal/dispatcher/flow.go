package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
)

// handleFlow trata a mensagem como resposta à pergunta pendente. Cancelar
// sempre volta ao estado ocioso; uma resposta inválida repete a pergunta e
// nunca cai na classificação de um novo pedido. O slot só é limpo depois
// que a ação dá certo.
func (d *Dispatcher) handleFlow(ctx context.Context, userID string, flow state.FlowState, text string) Reply {
	slot := flow.Active()
	if isCancel(text) {
		if err := d.flows.ClearSlot(ctx, userID, slot); err != nil {
			d.logger.Error("Erro ao limpar fluxo pendente", "user_id", userID, "slot", string(slot), "error", err)
		}
		d.logger.Info("Fluxo cancelado", "user_id", userID, "slot", string(slot))
		return Reply{Text: cancelledText}
	}

	switch slot {
	case state.SlotPendingEvent:
		return d.answerPendingEvent(ctx, userID, *flow.PendingEvent, text)
	case state.SlotEventUpdate:
		return d.answerEventUpdate(ctx, userID, *flow.PendingEventUpdate, text)
	case state.SlotTrelloUpdate:
		return d.answerTrelloUpdate(ctx, userID, *flow.PendingTrelloUpdate, text)
	case state.SlotTrelloDelete:
		return d.answerTrelloDelete(ctx, userID, *flow.PendingTrelloDelete, text)
	case state.SlotKBUpdate:
		return d.answerKBUpdate(ctx, userID, *flow.PendingKBUpdate, text)
	}
	return Reply{Text: clarifyText}
}

// finish limpa o slot consumido quando a ação deu certo
func (d *Dispatcher) finish(ctx context.Context, userID string, slot state.FlowSlot, res result) Reply {
	if res.status == "ok" {
		if err := d.flows.ClearSlot(ctx, userID, slot); err != nil {
			d.logger.Error("Erro ao limpar fluxo pendente", "user_id", userID, "slot", string(slot), "error", err)
		}
	}
	return res.reply()
}

func (d *Dispatcher) answerPendingEvent(ctx context.Context, userID string, p state.PendingEvent, text string) Reply {
	if isCancel(text) {
		return d.handleFlow(ctx, userID, state.FlowState{PendingEvent: &p}, text)
	}

	in := calendar.EventInput{
		Summary:     p.Summary,
		Description: p.Description,
		Location:    p.Location,
		Start:       p.Start,
		End:         p.End,
	}
	dur := p.End.Sub(p.Start)

	if i, ok := parseChoice(text, len(p.Suggestions)); ok {
		in.Start, in.End = p.Suggestions[i-1].Start, p.Suggestions[i-1].End
		return d.finish(ctx, userID, state.SlotPendingEvent, d.insertEvent(ctx, userID, in, nil))
	}
	if isKeep(text) || isYes(text) {
		return d.finish(ctx, userID, state.SlotPendingEvent, d.insertEvent(ctx, userID, in, nil))
	}

	if start, ok := parseTimeAnswer(text, p.Start.In(d.loc), d.nowLocal()); ok {
		check, err := call(ctx, d, "calendar", "conflict_check", func(ctx context.Context) (conflict.Result, error) {
			return d.conflicts.Check(ctx, start, start.Add(dur), false)
		})
		if err != nil {
			return d.failure(userID, "create_event", err).reply()
		}
		if !check.HasConflict {
			in.Start, in.End = check.Start, check.End
			return d.finish(ctx, userID, state.SlotPendingEvent, d.insertEvent(ctx, userID, in, check.Warnings))
		}

		// o novo horário também conflita: troca a proposta e pergunta de novo
		p.Start, p.End, p.Suggestions = check.Start, check.End, check.Suggestions
		if err := d.flows.Await(ctx, userID, state.FlowState{PendingEvent: &p}); err != nil {
			return d.failure(userID, "create_event", err).reply()
		}
		return d.conflictPrompt(p, check.Conflicts).reply()
	}

	res := d.conflictPrompt(p, nil)
	res.text = "Não entendi a resposta.\n\n" + res.text
	return res.reply()
}

func (d *Dispatcher) answerEventUpdate(ctx context.Context, userID string, p state.PendingEventUpdate, text string) Reply {
	var patch calendar.EventPatch
	switch p.Field {
	case intent.FieldTitle:
		title := strings.TrimSpace(text)
		patch.Summary = &title
	case intent.FieldLocation:
		location := strings.TrimSpace(text)
		patch.Location = &location
	default:
		start, ok := parseTimeAnswer(text, p.Start.In(d.loc), d.nowLocal())
		if !ok {
			return Reply{Text: "Não entendi o horário. " + eventUpdateQuestion(p)}
		}
		end := start.Add(p.End.Sub(p.Start))
		patch.Start, patch.End = &start, &end
	}
	return d.finish(ctx, userID, state.SlotEventUpdate, d.patchEvent(ctx, userID, p.EventID, patch))
}

func (d *Dispatcher) answerTrelloUpdate(ctx context.Context, userID string, p state.PendingTrelloUpdate, text string) Reply {
	res, valid := d.applyTrelloUpdate(ctx, userID, p.CardID, p.CardName, p.Action, text)
	if !valid {
		return res.reply()
	}
	return d.finish(ctx, userID, state.SlotTrelloUpdate, res)
}

func (d *Dispatcher) answerTrelloDelete(ctx context.Context, userID string, p state.PendingTrelloDelete, text string) Reply {
	switch {
	case isCancel(text) || isNo(text):
		if err := d.flows.ClearSlot(ctx, userID, state.SlotTrelloDelete); err != nil {
			d.logger.Error("Erro ao limpar fluxo pendente", "user_id", userID, "error", err)
		}
		return Reply{Text: fmt.Sprintf("Ok, o card \"%s\" foi mantido.", p.CardName)}
	case isYes(text):
		err := exec(ctx, d, "trello", "delete_card", func(ctx context.Context) error {
			return d.board.DeleteCard(ctx, p.CardID)
		})
		if err != nil {
			return d.failure(userID, "trello_delete", err).reply()
		}
		d.invalidate(cache.ScopeTrello)
		d.logger.Info("Card excluído", "user_id", userID, "entity_id", p.CardID)
		return d.finish(ctx, userID, state.SlotTrelloDelete, done("🗑️ Card excluído: "+p.CardName))
	}
	return Reply{
		Text:    "Responda sim para excluir ou não para manter.\n\n" + trelloDeleteQuestion(p),
		Buttons: [][]Button{trelloDeleteButtons()},
	}
}

func (d *Dispatcher) answerKBUpdate(ctx context.Context, userID string, p state.PendingKBUpdate, text string) Reply {
	if strings.TrimSpace(text) == "" {
		return Reply{Text: fmt.Sprintf("Qual o novo conteúdo para \"%s\"?", p.Content)}
	}
	return d.finish(ctx, userID, state.SlotKBUpdate, d.rewriteMemory(ctx, userID, p.EntryID, text))
}
