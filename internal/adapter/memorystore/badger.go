package memorystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// limiar mínimo para uma memória aparecer numa consulta
const queryThreshold = 0.4

// Store implementa memory.Store sobre badger, com chaves "mem/<usuário>/<id>"
type Store struct {
	db     *badger.DB
	now    func() time.Time
	logger logger.Logger
}

// Open abre (ou cria) o banco no diretório informado
func Open(dir string, log logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir banco de memórias: %w", err)
	}
	return &Store{db: db, now: time.Now, logger: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(userID, id string) []byte {
	return []byte("mem/" + userID + "/" + id)
}

func prefix(userID string) []byte {
	return []byte("mem/" + userID + "/")
}

func (s *Store) Store(_ context.Context, userID, content, category string) (memory.Entry, error) {
	now := s.now()
	entry := memory.Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   strings.TrimSpace(content),
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(entry); err != nil {
		return memory.Entry{}, err
	}
	return entry, nil
}

// Query devolve as memórias que contêm a consulta ou se parecem com ela, mais parecidas primeiro
func (s *Store) Query(ctx context.Context, userID, query string) ([]memory.Entry, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := fuzzy.Normalize(query)
	type scored struct {
		entry memory.Entry
		score float64
	}
	var hits []scored
	for _, e := range entries {
		haystack := fuzzy.Normalize(e.Content + " " + e.Category)
		score := fuzzy.Score(q, haystack)
		if q != "" && strings.Contains(haystack, q) {
			score = 1
		}
		if score >= queryThreshold {
			hits = append(hits, scored{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]memory.Entry, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.entry)
	}
	return out, nil
}

// List devolve todas as memórias do usuário, mais recentes primeiro
func (s *Store) List(_ context.Context, userID string) ([]memory.Entry, error) {
	var out []memory.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var e memory.Entry
				if err := json.Unmarshal(val, &e); err != nil {
					s.logger.Warn("Memória corrompida ignorada", "key", string(item.Key()), "error", err)
					return nil
				}
				out = append(out, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao listar memórias: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Update(_ context.Context, userID, id, content string) (memory.Entry, error) {
	var entry memory.Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(userID, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return memory.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return err
		}

		entry.Content = strings.TrimSpace(content)
		entry.UpdatedAt = s.now()
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return txn.Set(key(userID, id), data)
	})
	if err != nil {
		return memory.Entry{}, err
	}
	return entry, nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(userID, id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return memory.ErrNotFound
			}
			return err
		}
		return txn.Delete(key(userID, id))
	})
}

func (s *Store) put(entry memory.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("erro ao serializar memória: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(entry.UserID, entry.ID), data)
	})
}
