package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/google/uuid"
)

// DefaultHistoryLimit é o máximo de entradas guardadas por usuário
const DefaultHistoryLimit = 20

// undoTable mapeia cada ação reversível para a ação que a desfaz
var undoTable = map[string]string{
	"create_event":        "delete_event",
	"complete_event":      "uncomplete_event",
	"create_task":         "delete_task",
	"complete_task":       "uncomplete_task",
	"trello_create":       "trello_delete",
	"trello_archive":      "trello_unarchive",
	"trello_move":         "trello_move_back",
	"complete_all_events": "uncomplete_events",
	"trello_archive_list": "trello_unarchive_many",
	"store_memory":        "delete_memory",
}

// UndoFor retorna a ação inversa, se houver
func UndoFor(actionType string) (string, bool) {
	u, ok := undoTable[actionType]
	return u, ok
}

// HistoryEntry é uma ação registrada que pode ser desfeita
type HistoryEntry struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	UndoType  string          `json:"undo_type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Result    []string        `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Undone    bool            `json:"undone"`
}

// Decode lê os dados originais da ação
func (e HistoryEntry) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// ActionHistoryStore mantém o histórico limitado de ações por usuário, mais recente primeiro.
// Falhas de persistência são registradas no log e não interrompem a ação.
type ActionHistoryStore struct {
	store  Store[[]HistoryEntry]
	locks  *KeyedMutex
	limit  int
	now    func() time.Time
	logger logger.Logger
}

func NewActionHistoryStore(store Store[[]HistoryEntry], limit int, now func() time.Time, log logger.Logger) *ActionHistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if now == nil {
		now = time.Now
	}
	return &ActionHistoryStore{store: store, locks: NewKeyedMutex(), limit: limit, now: now, logger: log}
}

// Record adiciona a ação no topo do histórico. Ações sem inversa não são registradas.
func (h *ActionHistoryStore) Record(ctx context.Context, userID, actionType string, data any, result ...string) (HistoryEntry, bool) {
	undoType, ok := UndoFor(actionType)
	if !ok {
		return HistoryEntry{}, false
	}

	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Erro ao serializar dados do histórico", "user_id", userID, "type", actionType, "error", err)
		payload = nil
	}

	entry := HistoryEntry{
		ID:        uuid.New().String(),
		Type:      actionType,
		UndoType:  undoType,
		Data:      payload,
		Result:    result,
		Timestamp: h.now(),
	}

	unlock := h.locks.Lock(userID)
	defer unlock()

	current := h.load(ctx, userID)
	next := make([]HistoryEntry, 0, min(len(current)+1, h.limit))
	next = append(next, entry)
	for _, e := range current {
		if len(next) >= h.limit {
			break
		}
		next = append(next, e)
	}

	if err := h.store.Set(ctx, userID, next); err != nil {
		h.logger.Error("Erro ao persistir histórico", "user_id", userID, "type", actionType, "error", err)
	}
	return entry, true
}

// GetLast retorna a entrada mais recente ainda não desfeita
func (h *ActionHistoryStore) GetLast(ctx context.Context, userID string) (HistoryEntry, bool) {
	unlock := h.locks.Lock(userID)
	defer unlock()

	for _, e := range h.load(ctx, userID) {
		if !e.Undone {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// MarkUndone marca a entrada como desfeita sem removê-la
func (h *ActionHistoryStore) MarkUndone(ctx context.Context, userID, entryID string) {
	unlock := h.locks.Lock(userID)
	defer unlock()

	current := h.load(ctx, userID)
	next := make([]HistoryEntry, len(current))
	copy(next, current)

	changed := false
	for i := range next {
		if next[i].ID == entryID && !next[i].Undone {
			next[i].Undone = true
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := h.store.Set(ctx, userID, next); err != nil {
		h.logger.Error("Erro ao persistir histórico", "user_id", userID, "entry_id", entryID, "error", err)
	}
}

// List retorna todo o histórico do usuário
func (h *ActionHistoryStore) List(ctx context.Context, userID string) []HistoryEntry {
	unlock := h.locks.Lock(userID)
	defer unlock()

	current := h.load(ctx, userID)
	out := make([]HistoryEntry, len(current))
	copy(out, current)
	return out
}

func (h *ActionHistoryStore) load(ctx context.Context, userID string) []HistoryEntry {
	entries, _, err := h.store.Get(ctx, userID)
	if err != nil {
		h.logger.Error("Erro ao carregar histórico", "user_id", userID, "error", err)
		return nil
	}
	return entries
}
