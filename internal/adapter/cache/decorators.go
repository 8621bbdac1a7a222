package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
)

// Events guarda as listagens da agenda
type Events struct {
	calendar.EventStore
	cache *Cache
}

func NewEvents(next calendar.EventStore, c *Cache) *Events {
	return &Events{EventStore: next, cache: c}
}

func (e *Events) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	key := fmt.Sprintf("events:%d:%d", from.Unix(), to.Unix())
	return load(e.cache, ScopeEvents, key, func() ([]calendar.Event, error) {
		return e.EventStore.ListEvents(ctx, from, to)
	})
}

// Tasks guarda as listagens de tarefas
type Tasks struct {
	calendar.TaskStore
	cache *Cache
}

func NewTasks(next calendar.TaskStore, c *Cache) *Tasks {
	return &Tasks{TaskStore: next, cache: c}
}

func (t *Tasks) ListTasks(ctx context.Context, includeCompleted bool) ([]calendar.Task, error) {
	key := fmt.Sprintf("tasks:%t", includeCompleted)
	return load(t.cache, ScopeEvents, key, func() ([]calendar.Task, error) {
		return t.TaskStore.ListTasks(ctx, includeCompleted)
	})
}

// Board guarda cards, listas e etiquetas. Search sempre vai ao remoto.
type Board struct {
	board.Board
	cache *Cache
}

func NewBoard(next board.Board, c *Cache) *Board {
	return &Board{Board: next, cache: c}
}

func (b *Board) ListCards(ctx context.Context) ([]board.Card, error) {
	return load(b.cache, ScopeTrello, "trello:cards", func() ([]board.Card, error) {
		return b.Board.ListCards(ctx)
	})
}

func (b *Board) ListLists(ctx context.Context) ([]board.List, error) {
	return load(b.cache, ScopeTrello, "trello:lists", func() ([]board.List, error) {
		return b.Board.ListLists(ctx)
	})
}

func (b *Board) Labels(ctx context.Context) ([]board.Label, error) {
	return load(b.cache, ScopeTrello, "trello:labels", func() ([]board.Label, error) {
		return b.Board.Labels(ctx)
	})
}
