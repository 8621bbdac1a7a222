package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
)

// resolveConfirmation consome a confirmação com o id informado. Id diferente
// do pendente, ou confirmação expirada, não executa nada.
func (d *Dispatcher) resolveConfirmation(ctx context.Context, userID, id string, accept bool) Reply {
	c, err := d.confirmations.Take(ctx, userID, id)
	if err != nil {
		if errors.Is(err, state.ErrStaleConfirmation) {
			metrics.RecordConfirmation("unknown", "stale")
			d.logger.Info("Confirmação expirada ou desconhecida", "user_id", userID, "confirmation_id", id)
			return Reply{Text: staleText}
		}
		d.logger.Error("Erro ao carregar confirmação", "user_id", userID, "error", err)
		return Reply{Text: userFacingError(err)}
	}

	if !accept {
		metrics.RecordConfirmation(c.ActionType, "rejected")
		return Reply{Text: "Ok, nada foi alterado."}
	}
	metrics.RecordConfirmation(c.ActionType, "accepted")

	var res result
	switch c.ActionType {
	case "delete_event":
		res = d.confirmDeleteEvent(ctx, userID, c)
	case "complete_all_events":
		res = d.confirmCompleteAll(ctx, userID, c)
	case "trello_archive_list":
		res = d.confirmArchiveList(ctx, userID, c)
	default:
		d.logger.Error("Tipo de confirmação desconhecido", "user_id", userID, "action_type", c.ActionType)
		res = failed(genericErrorText)
	}
	metrics.RecordIntent(c.ActionType, res.status)
	return res.reply()
}

func (d *Dispatcher) confirmDeleteEvent(ctx context.Context, userID string, c state.Confirmation) result {
	var ref eventRef
	if err := c.Decode(&ref); err != nil {
		return d.failure(userID, "delete_event", err)
	}
	if err := exec(ctx, d, "calendar", "delete_event", func(ctx context.Context) error {
		return d.events.DeleteEvent(ctx, ref.ID)
	}); err != nil {
		return d.failure(userID, "delete_event", err)
	}
	d.invalidate(cache.ScopeEvents)
	d.logger.Info("Evento removido", "user_id", userID, "entity_id", ref.ID)
	return done("🗑️ Evento removido: " + ref.Summary)
}

// confirmCompleteAll conclui um a um; o histórico guarda só os que deram certo
func (d *Dispatcher) confirmCompleteAll(ctx context.Context, userID string, c state.Confirmation) result {
	var payload dayEvents
	if err := c.Decode(&payload); err != nil {
		return d.failure(userID, "complete_all_events", err)
	}

	completed := dayEvents{Date: payload.Date}
	var ids []string
	var lastErr error
	for _, ref := range payload.Events {
		summary := calendar.CompletedPrefix + ref.Summary
		_, err := call(ctx, d, "calendar", "update_event", func(ctx context.Context) (calendar.Event, error) {
			return d.events.UpdateEvent(ctx, ref.ID, calendar.EventPatch{Summary: &summary})
		})
		if err != nil {
			d.logger.Error("Erro ao concluir evento", "user_id", userID, "entity_id", ref.ID, "error", err)
			lastErr = err
			continue
		}
		completed.Events = append(completed.Events, ref)
		ids = append(ids, ref.ID)
	}

	if len(completed.Events) == 0 {
		return d.failure(userID, "complete_all_events", lastErr)
	}
	d.history.Record(ctx, userID, "complete_all_events", completed, ids...)
	d.invalidate(cache.ScopeEvents)

	text := fmt.Sprintf("✅ %s concluídos.", plural(len(completed.Events), "evento", "eventos"))
	if failedCount := len(payload.Events) - len(completed.Events); failedCount > 0 {
		text += fmt.Sprintf("\n❌ %s não puderam ser concluídos: %s", plural(failedCount, "evento", "eventos"), userFacingError(lastErr))
	}
	return done(text)
}

func (d *Dispatcher) confirmArchiveList(ctx context.Context, userID string, c state.Confirmation) result {
	var payload listArchive
	if err := c.Decode(&payload); err != nil {
		return d.failure(userID, "trello_archive_list", err)
	}

	archived := listArchive{ListID: payload.ListID, ListName: payload.ListName}
	var ids []string
	var lastErr error
	closed := true
	for _, ref := range payload.Cards {
		_, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
			return d.board.UpdateCard(ctx, ref.ID, board.CardPatch{Closed: &closed})
		})
		if err != nil {
			d.logger.Error("Erro ao arquivar card", "user_id", userID, "entity_id", ref.ID, "error", err)
			lastErr = err
			continue
		}
		archived.Cards = append(archived.Cards, ref)
		ids = append(ids, ref.ID)
	}

	if len(archived.Cards) == 0 {
		return d.failure(userID, "trello_archive_list", lastErr)
	}
	d.history.Record(ctx, userID, "trello_archive_list", archived, ids...)
	d.invalidate(cache.ScopeTrello)

	text := fmt.Sprintf("📦 %s da lista %s arquivados.", plural(len(archived.Cards), "card", "cards"), payload.ListName)
	if failedCount := len(payload.Cards) - len(archived.Cards); failedCount > 0 {
		text += fmt.Sprintf("\n❌ %s não puderam ser arquivados: %s", plural(failedCount, "card", "cards"), userFacingError(lastErr))
	}
	return done(text)
}
