package state

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleConfirmation é retornado quando o id da confirmação não bate com a pendente
var ErrStaleConfirmation = errors.New("confirmação expirada ou já processada")

// Store guarda um valor por usuário
type Store[T any] interface {
	Get(ctx context.Context, userID string) (T, bool, error)
	Set(ctx context.Context, userID string, value T) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore é um Store em memória, usado em testes e como padrão
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]T)}
}

func (s *MemoryStore[T]) Get(_ context.Context, userID string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[userID]
	return v, ok, nil
}

func (s *MemoryStore[T]) Set(_ context.Context, userID string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = value
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
	return nil
}

// KeyedMutex serializa operações por usuário sem bloquear usuários diferentes
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock trava a chave e retorna a função que destrava
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
