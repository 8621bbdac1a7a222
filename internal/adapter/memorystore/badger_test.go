package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return s
}

func TestStoreListIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Store(ctx, "u1", "senha do wifi é abc123", "casa")
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "placa do carro QWE1234", "")
	require.NoError(t, err)
	_, err = s.Store(ctx, "u2", "aniversário da Ana em maio", "")
	require.NoError(t, err)

	entries, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// mais recente primeiro
	assert.Equal(t, "placa do carro QWE1234", entries[0].Content)

	other, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestQueryMatchesAccentInsensitive(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Store(ctx, "u1", "Senha do Wi-Fi: abc123", "")
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "Médico: Dr. João, terça", "saúde")
	require.NoError(t, err)

	hits, err := s.Query(ctx, "u1", "medico")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "João")

	none, err := s.Query(ctx, "u1", "passaporte")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	e, err := s.Store(ctx, "u1", "vaga 12", "")
	require.NoError(t, err)

	updated, err := s.Update(ctx, "u1", e.ID, "vaga 14")
	require.NoError(t, err)
	assert.Equal(t, "vaga 14", updated.Content)
	assert.True(t, updated.UpdatedAt.After(e.UpdatedAt))

	require.NoError(t, s.Delete(ctx, "u1", e.ID))
	assert.ErrorIs(t, s.Delete(ctx, "u1", e.ID), memory.ErrNotFound)

	_, err = s.Update(ctx, "u1", e.ID, "x")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}
