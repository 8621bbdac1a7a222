package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DefaultConfirmationTTL é o tempo até uma confirmação expirar sozinha
const DefaultConfirmationTTL = 2 * time.Minute

// Confirmation é uma ação arriscada aguardando aceite ou recusa
type Confirmation struct {
	ID         string          `json:"id"`
	ActionType string          `json:"action_type"`
	Data       json.RawMessage `json:"data,omitempty"`
	Items      []string        `json:"items,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Expires    time.Time       `json:"expires"`
}

// Decode lê o payload da ação
func (c Confirmation) Decode(v any) error {
	if len(c.Data) == 0 {
		return nil
	}
	return json.Unmarshal(c.Data, v)
}

// ConfirmationStore guarda no máximo uma confirmação por usuário (a última vence)
type ConfirmationStore struct {
	store Store[Confirmation]
	locks *KeyedMutex
	ttl   time.Duration
	now   func() time.Time
}

func NewConfirmationStore(store Store[Confirmation], ttl time.Duration, now func() time.Time) *ConfirmationStore {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ConfirmationStore{store: store, locks: NewKeyedMutex(), ttl: ttl, now: now}
}

// Create substitui qualquer confirmação anterior do usuário
func (s *ConfirmationStore) Create(ctx context.Context, userID, actionType string, data any, items []string) (Confirmation, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Confirmation{}, fmt.Errorf("erro ao serializar confirmação: %w", err)
	}

	now := s.now()
	c := Confirmation{
		// o id vem do instante de criação, em base 36 para caber no callback
		ID:         strconv.FormatInt(now.UnixNano(), 36),
		ActionType: actionType,
		Data:       payload,
		Items:      items,
		CreatedAt:  now,
		Expires:    now.Add(s.ttl),
	}

	unlock := s.locks.Lock(userID)
	defer unlock()
	if err := s.store.Set(ctx, userID, c); err != nil {
		return Confirmation{}, err
	}
	return c, nil
}

// Get retorna a confirmação pendente, removendo-a se já expirou
func (s *ConfirmationStore) Get(ctx context.Context, userID string) (Confirmation, bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.getLocked(ctx, userID)
}

func (s *ConfirmationStore) getLocked(ctx context.Context, userID string) (Confirmation, bool, error) {
	c, ok, err := s.store.Get(ctx, userID)
	if err != nil || !ok {
		return Confirmation{}, false, err
	}
	if !s.now().Before(c.Expires) {
		if err := s.store.Delete(ctx, userID); err != nil {
			return Confirmation{}, false, err
		}
		return Confirmation{}, false, nil
	}
	return c, true, nil
}

// Take consome a confirmação se o id bater com a pendente. Caso contrário
// retorna ErrStaleConfirmation sem alterar nada.
func (s *ConfirmationStore) Take(ctx context.Context, userID, id string) (Confirmation, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, ok, err := s.getLocked(ctx, userID)
	if err != nil {
		return Confirmation{}, err
	}
	if !ok || c.ID != id {
		return Confirmation{}, ErrStaleConfirmation
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return Confirmation{}, err
	}
	return c, nil
}

// Clear remove a confirmação pendente
func (s *ConfirmationStore) Clear(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.store.Delete(ctx, userID)
}
