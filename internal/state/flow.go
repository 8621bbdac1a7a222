package state

import (
	"context"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
)

// FlowSlot identifica qual pergunta de acompanhamento está pendente
type FlowSlot string

const (
	SlotNone         FlowSlot = ""
	SlotPendingEvent FlowSlot = "pending_event"
	SlotEventUpdate  FlowSlot = "pending_event_update"
	SlotTrelloUpdate FlowSlot = "pending_trello_update"
	SlotTrelloDelete FlowSlot = "pending_trello_delete"
	SlotKBUpdate     FlowSlot = "pending_kb_update"
)

// FlowPriority é a ordem em que os slots são verificados
var FlowPriority = []FlowSlot{
	SlotPendingEvent,
	SlotEventUpdate,
	SlotTrelloUpdate,
	SlotTrelloDelete,
	SlotKBUpdate,
}

// PendingEvent é um evento com conflito aguardando a escolha de horário
type PendingEvent struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Suggestions []calendar.Slot `json:"suggestions,omitempty"`
}

// PendingEventUpdate aguarda o novo valor de um campo do evento
type PendingEventUpdate struct {
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Field   string    `json:"field"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// PendingTrelloUpdate aguarda o valor de prazo, descrição, etiqueta ou checklist
type PendingTrelloUpdate struct {
	CardID   string `json:"card_id"`
	CardName string `json:"card_name"`
	Action   string `json:"action"`
}

// PendingTrelloDelete aguarda a confirmação da exclusão definitiva
type PendingTrelloDelete struct {
	CardID   string `json:"card_id"`
	CardName string `json:"card_name"`
}

// PendingKBUpdate aguarda o novo conteúdo de uma memória
type PendingKBUpdate struct {
	EntryID string `json:"entry_id"`
	Content string `json:"content"`
}

// FlowState é o estado de conversa de várias etapas de um usuário
type FlowState struct {
	PendingEvent        *PendingEvent        `json:"pending_event,omitempty"`
	PendingEventUpdate  *PendingEventUpdate  `json:"pending_event_update,omitempty"`
	PendingTrelloUpdate *PendingTrelloUpdate `json:"pending_trello_update,omitempty"`
	PendingTrelloDelete *PendingTrelloDelete `json:"pending_trello_delete,omitempty"`
	PendingKBUpdate     *PendingKBUpdate     `json:"pending_kb_update,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Active retorna o primeiro slot preenchido na ordem de prioridade
func (f FlowState) Active() FlowSlot {
	for _, slot := range FlowPriority {
		if f.has(slot) {
			return slot
		}
	}
	return SlotNone
}

// Idle indica que nenhum slot está pendente
func (f FlowState) Idle() bool {
	return f.Active() == SlotNone
}

func (f FlowState) has(slot FlowSlot) bool {
	switch slot {
	case SlotPendingEvent:
		return f.PendingEvent != nil
	case SlotEventUpdate:
		return f.PendingEventUpdate != nil
	case SlotTrelloUpdate:
		return f.PendingTrelloUpdate != nil
	case SlotTrelloDelete:
		return f.PendingTrelloDelete != nil
	case SlotKBUpdate:
		return f.PendingKBUpdate != nil
	}
	return false
}

func (f *FlowState) clear(slot FlowSlot) {
	switch slot {
	case SlotPendingEvent:
		f.PendingEvent = nil
	case SlotEventUpdate:
		f.PendingEventUpdate = nil
	case SlotTrelloUpdate:
		f.PendingTrelloUpdate = nil
	case SlotTrelloDelete:
		f.PendingTrelloDelete = nil
	case SlotKBUpdate:
		f.PendingKBUpdate = nil
	}
}

// FlowStore persiste o FlowState por usuário
type FlowStore struct {
	store Store[FlowState]
	locks *KeyedMutex
	now   func() time.Time
}

func NewFlowStore(store Store[FlowState], now func() time.Time) *FlowStore {
	if now == nil {
		now = time.Now
	}
	return &FlowStore{store: store, locks: NewKeyedMutex(), now: now}
}

// Get retorna o estado atual; usuário sem estado volta um FlowState vazio
func (s *FlowStore) Get(ctx context.Context, userID string) (FlowState, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	f, _, err := s.store.Get(ctx, userID)
	return f, err
}

// Await grava um novo slot pendente. Qualquer outro slot é descartado para
// que só uma pergunta fique ativa por vez.
func (s *FlowStore) Await(ctx context.Context, userID string, f FlowState) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	active := f.Active()
	for _, slot := range FlowPriority {
		if slot != active {
			f.clear(slot)
		}
	}
	if active == SlotNone {
		return s.store.Delete(ctx, userID)
	}
	f.UpdatedAt = s.now()
	return s.store.Set(ctx, userID, f)
}

// ClearSlot limpa apenas o slot informado
func (s *FlowStore) ClearSlot(ctx context.Context, userID string, slot FlowSlot) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	f, ok, err := s.store.Get(ctx, userID)
	if err != nil || !ok {
		return err
	}
	f.clear(slot)
	if f.Idle() {
		return s.store.Delete(ctx, userID)
	}
	f.UpdatedAt = s.now()
	return s.store.Set(ctx, userID, f)
}

// Reset remove todo o estado do usuário
func (s *FlowStore) Reset(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.store.Delete(ctx, userID)
}
