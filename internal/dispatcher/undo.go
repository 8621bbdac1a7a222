package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
)

// undo reverte a ação mais recente ainda não desfeita
func (d *Dispatcher) undo(ctx context.Context, userID string) result {
	entry, ok := d.history.GetLast(ctx, userID)
	if !ok {
		return notFound(nothingToUndo)
	}

	text, scope, err := d.revert(ctx, userID, entry)
	if err != nil && !isGone(err) {
		metrics.RecordUndo(entry.UndoType, "error")
		return d.failure(userID, entry.UndoType, err)
	}

	d.history.MarkUndone(ctx, userID, entry.ID)
	if scope != "" {
		d.invalidate(scope)
	}
	metrics.RecordUndo(entry.UndoType, "ok")
	d.logger.Info("Ação desfeita", "user_id", userID, "type", entry.Type, "undo_type", entry.UndoType, "entry_id", entry.ID)

	if err != nil {
		return done("↩️ O item já tinha sido removido, então não havia nada a desfazer.")
	}
	return done("↩️ " + text)
}

// isGone indica que o alvo do desfazer já foi removido no serviço remoto
func isGone(err error) bool {
	if code, ok := statusCode(err); ok {
		return code == 404 || code == 410
	}
	return errors.Is(err, memory.ErrNotFound)
}

// revert executa a ação inversa e devolve a mensagem e o escopo de cache afetado
func (d *Dispatcher) revert(ctx context.Context, userID string, e state.HistoryEntry) (string, cache.Scope, error) {
	switch e.UndoType {
	case "delete_event":
		var ref eventRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := exec(ctx, d, "calendar", "delete_event", func(ctx context.Context) error {
			return d.events.DeleteEvent(ctx, ref.ID)
		})
		return "Evento removido: " + ref.Summary, cache.ScopeEvents, err

	case "uncomplete_event":
		var ref eventRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := d.restoreSummary(ctx, ref)
		return "Evento voltou a ficar pendente: " + ref.Summary, cache.ScopeEvents, err

	case "uncomplete_events":
		var payload dayEvents
		if err := e.Decode(&payload); err != nil {
			return "", "", err
		}
		var lastErr error
		restored := 0
		for _, ref := range payload.Events {
			if err := d.restoreSummary(ctx, ref); err != nil && !isGone(err) {
				lastErr = err
				continue
			}
			restored++
		}
		if restored == 0 && lastErr != nil {
			return "", "", lastErr
		}
		return fmt.Sprintf("%s voltaram a ficar pendentes.", plural(restored, "evento", "eventos")), cache.ScopeEvents, nil

	case "delete_task":
		var ref taskRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := exec(ctx, d, "tasks", "delete_task", func(ctx context.Context) error {
			return d.tasks.DeleteTask(ctx, ref.ID)
		})
		return "Tarefa removida: " + ref.Title, cache.ScopeEvents, err

	case "uncomplete_task":
		var ref taskRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		_, err := call(ctx, d, "tasks", "uncomplete_task", func(ctx context.Context) (calendar.Task, error) {
			return d.tasks.SetTaskCompleted(ctx, ref.ID, false)
		})
		return "Tarefa voltou a ficar pendente: " + ref.Title, cache.ScopeEvents, err

	case "trello_delete":
		var ref cardRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := exec(ctx, d, "trello", "delete_card", func(ctx context.Context) error {
			return d.board.DeleteCard(ctx, ref.ID)
		})
		return "Card removido: " + ref.Name, cache.ScopeTrello, err

	case "trello_unarchive":
		var ref cardRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := d.setClosed(ctx, ref.ID, false)
		return "Card restaurado: " + ref.Name, cache.ScopeTrello, err

	case "trello_unarchive_many":
		var payload listArchive
		if err := e.Decode(&payload); err != nil {
			return "", "", err
		}
		var lastErr error
		restored := 0
		for _, ref := range payload.Cards {
			if err := d.setClosed(ctx, ref.ID, false); err != nil && !isGone(err) {
				lastErr = err
				continue
			}
			restored++
		}
		if restored == 0 && lastErr != nil {
			return "", "", lastErr
		}
		return fmt.Sprintf("%s restaurados na lista %s.", plural(restored, "card", "cards"), payload.ListName), cache.ScopeTrello, nil

	case "trello_move_back":
		var move cardMove
		if err := e.Decode(&move); err != nil {
			return "", "", err
		}
		_, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
			return d.board.UpdateCard(ctx, move.CardID, board.CardPatch{ListID: &move.FromListID})
		})
		return fmt.Sprintf("Card \"%s\" voltou para %s.", move.CardName, move.FromListName), cache.ScopeTrello, err

	case "delete_memory":
		var ref memoryRef
		if err := e.Decode(&ref); err != nil {
			return "", "", err
		}
		err := exec(ctx, d, "memory", "delete", func(ctx context.Context) error {
			return d.memory.Delete(ctx, userID, ref.ID)
		})
		return "Anotação apagada: " + ref.Content, cache.ScopeAll, err
	}
	return "", "", fmt.Errorf("tipo de desfazer desconhecido: %s", e.UndoType)
}

func (d *Dispatcher) restoreSummary(ctx context.Context, ref eventRef) error {
	summary := ref.Summary
	_, err := call(ctx, d, "calendar", "update_event", func(ctx context.Context) (calendar.Event, error) {
		return d.events.UpdateEvent(ctx, ref.ID, calendar.EventPatch{Summary: &summary})
	})
	return err
}

func (d *Dispatcher) setClosed(ctx context.Context, id string, closed bool) error {
	_, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
		return d.board.UpdateCard(ctx, id, board.CardPatch{Closed: &closed})
	})
	return err
}
