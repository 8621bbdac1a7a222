package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
)

func (d *Dispatcher) storeMemory(ctx context.Context, userID string, v intent.StoreMemory) result {
	content := strings.TrimSpace(v.Content)
	if content == "" {
		return failed("O que devo anotar?")
	}

	entry, err := call(ctx, d, "memory", "store", func(ctx context.Context) (memory.Entry, error) {
		return d.memory.Store(ctx, userID, content, v.Category)
	})
	if err != nil {
		return d.failure(userID, "store_memory", err)
	}

	d.history.Record(ctx, userID, "store_memory", memoryRef{ID: entry.ID, Content: entry.Content}, entry.ID)
	return done("🧠 Anotado: " + entry.Content)
}

func (d *Dispatcher) queryMemory(ctx context.Context, userID string, v intent.QueryMemory) result {
	entries, err := call(ctx, d, "memory", "query", func(ctx context.Context) ([]memory.Entry, error) {
		return d.memory.Query(ctx, userID, v.Query)
	})
	if err != nil {
		return d.failure(userID, "query_memory", err)
	}
	if len(entries) == 0 {
		return notFound(fmt.Sprintf("Não encontrei nada sobre \"%s\" nas suas anotações.", v.Query))
	}
	return done("🧠 " + formatEntries(entries))
}

func (d *Dispatcher) listMemory(ctx context.Context, userID string) result {
	entries, err := call(ctx, d, "memory", "list", func(ctx context.Context) ([]memory.Entry, error) {
		return d.memory.List(ctx, userID)
	})
	if err != nil {
		return d.failure(userID, "list_memory", err)
	}
	if len(entries) == 0 {
		return done("Você ainda não tem anotações.")
	}
	return done("🧠 Suas anotações:\n" + formatEntries(entries))
}

func formatEntries(entries []memory.Entry) string {
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		line := fmt.Sprintf("%d. %s", i+1, e.Content)
		if e.Category != "" {
			line += " [" + e.Category + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// resolveMemory procura entre todas as anotações e depois na consulta por conteúdo
func (d *Dispatcher) resolveMemory(ctx context.Context, userID, query string) (memory.Entry, bool, error) {
	entries, err := call(ctx, d, "memory", "list", func(ctx context.Context) ([]memory.Entry, error) {
		return d.memory.List(ctx, userID)
	})
	if err != nil {
		return memory.Entry{}, false, err
	}
	search := func(ctx context.Context, q string) ([]memory.Entry, error) {
		return d.memory.Query(ctx, userID, q)
	}
	entry, _, found := fuzzy.Resolve(ctx, d.matcher, query, entries, search)
	return entry, found, nil
}

func memoryNotFound(query string) result {
	return notFound(fmt.Sprintf("Não encontrei a anotação \"%s\".", query))
}

func (d *Dispatcher) updateMemory(ctx context.Context, userID string, v intent.UpdateMemory) result {
	entry, found, err := d.resolveMemory(ctx, userID, v.Query)
	if err != nil {
		return d.failure(userID, "update_memory", err)
	}
	if !found {
		return memoryNotFound(v.Query)
	}

	if strings.TrimSpace(v.Content) == "" {
		p := &state.PendingKBUpdate{EntryID: entry.ID, Content: entry.Content}
		if err := d.flows.Await(ctx, userID, state.FlowState{PendingKBUpdate: p}); err != nil {
			return d.failure(userID, "update_memory", err)
		}
		return pending(fmt.Sprintf("Qual o novo conteúdo para \"%s\"?", entry.Content))
	}
	return d.rewriteMemory(ctx, userID, entry.ID, v.Content)
}

func (d *Dispatcher) rewriteMemory(ctx context.Context, userID, id, content string) result {
	updated, err := call(ctx, d, "memory", "update", func(ctx context.Context) (memory.Entry, error) {
		return d.memory.Update(ctx, userID, id, strings.TrimSpace(content))
	})
	if err != nil {
		return d.failure(userID, "update_memory", err)
	}
	return done("🧠 Anotação atualizada: " + updated.Content)
}

func (d *Dispatcher) deleteMemory(ctx context.Context, userID string, v intent.DeleteMemory) result {
	entry, found, err := d.resolveMemory(ctx, userID, v.Query)
	if err != nil {
		return d.failure(userID, "delete_memory", err)
	}
	if !found {
		return memoryNotFound(v.Query)
	}

	if err := exec(ctx, d, "memory", "delete", func(ctx context.Context) error {
		return d.memory.Delete(ctx, userID, entry.ID)
	}); err != nil {
		return d.failure(userID, "delete_memory", err)
	}
	return done("🗑️ Anotação apagada: " + entry.Content)
}
