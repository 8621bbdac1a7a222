package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore mantém tudo em memória e regrava o arquivo JSON inteiro a cada mutação
type FileStore[T any] struct {
	path  string
	mu    sync.RWMutex
	items map[string]T
}

// OpenFileStore carrega o arquivo se existir; arquivo ausente começa vazio
func OpenFileStore[T any](path string) (*FileStore[T], error) {
	s := &FileStore[T]{path: path, items: make(map[string]T)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.items); err != nil {
			return nil, fmt.Errorf("erro ao decodificar %s: %w", path, err)
		}
	}
	if s.items == nil {
		s.items = make(map[string]T)
	}
	return s, nil
}

func (s *FileStore[T]) Get(_ context.Context, userID string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[userID]
	return v, ok, nil
}

func (s *FileStore[T]) Set(_ context.Context, userID string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = value
	return s.flushLocked()
}

func (s *FileStore[T]) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[userID]; !ok {
		return nil
	}
	delete(s.items, userID)
	return s.flushLocked()
}

// flushLocked grava num arquivo temporário e renomeia
func (s *FileStore[T]) flushLocked() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("erro ao serializar estado: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("erro ao criar diretório: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("erro ao gravar %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("erro ao substituir %s: %w", s.path, err)
	}
	return nil
}
