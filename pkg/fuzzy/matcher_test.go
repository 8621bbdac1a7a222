package fuzzy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func opts(names ...string) []Option {
	out := make([]Option, len(names))
	for i, n := range names {
		out[i] = Option{ID: n, Name: n, Modified: base}
	}
	return out
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "reuniao de condominio", Normalize("  Reunião   de CONDOMÍNIO "))
	assert.Equal(t, "acao", Normalize("Ação"))
	assert.Equal(t, "", Normalize("   "))
}

func TestStripQualifiersAndFirstWord(t *testing.T) {
	assert.Equal(t, "comprar pneus", StripQualifiers("Comprar pneus (urgente)"))
	assert.Equal(t, "viagem", StripQualifiers("Viagem dependendo do clima"))
	assert.Equal(t, "relatorio", FirstWord("O relatório (versão final)"))
}

func TestFindCascade(t *testing.T) {
	m := New()
	tests := []struct {
		name       string
		query      string
		candidates []Option
		wantID     string
		strategy   Strategy
	}{
		{"exact ignoring accents", "reuniao com cliente", opts("Reunião com cliente", "Almoço"), "Reunião com cliente", StrategyExact},
		{"numeric padded", "02", opts("01. Abrir empresa", "02. Contrato social", "Projeto 02"), "02. Contrato social", StrategyNumericPrefix},
		{"numeric with word", "item 2", opts("1. Alpha", "2. Beta"), "2. Beta", StrategyNumericPrefix},
		{"numeric card word", "card 03", opts("03. Gamma", "30. Delta"), "03. Gamma", StrategyNumericPrefix},
		{"fuzzy typo", "reuniao com clinte", opts("Reunião com cliente", "Dentista"), "Reunião com cliente", StrategyFuzzy},
		{"fuzzy highest score", "reuniao equipe", opts("Reunião equipe de vendas semanal", "Reunião equipe vendas"), "Reunião equipe vendas", StrategyFuzzy},
		{"query contains name", "aquele card do processo trabalhista do joao silva", opts("Processo trabalhista", "Dentista"), "Processo trabalhista", StrategySubstring},
		{"first word", "Inventário da Maria", opts("Inventário (dependendo do cartório) fase final", "Almoço"), "Inventário (dependendo do cartório) fase final", StrategyFirstWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, ok := Find(m, tt.query, tt.candidates)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestFindNotFound(t *testing.T) {
	m := New()
	for _, q := range []string{"dentista", "", "  ", "xy"} {
		_, _, ok := Find(m, q, opts("Reunião equipe", "Almoço com Maria", "Academia"))
		assert.False(t, ok, q)
	}
	_, _, ok := Find(m, "reuniao", []Option{})
	assert.False(t, ok)
}

func TestShortQueriesDoNotMatchSimilarWords(t *testing.T) {
	tests := []struct {
		query     string
		candidate string
	}{
		{"gato", "Pato"},
		{"casa", "Cama"},
		{"pao", "Pai"},
		{"ata", "Atualizar data do contrato"},
		{"dia", "Reunião diária"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, strategy, ok := Find(New(), tt.query, opts(tt.candidate))
			assert.False(t, ok, "casou por %s", strategy)
		})
	}
}

func TestContainmentUsesWholeWords(t *testing.T) {
	got, strategy, ok := Find(New(), "diaria", opts("Reunião diária da equipe de vendas e suporte"))
	require.True(t, ok)
	assert.Equal(t, StrategySubstring, strategy)
	assert.Equal(t, "Reunião diária da equipe de vendas e suporte", got.ID)

	_, _, ok = Find(New(), "vend", opts("Reunião diária da equipe de vendas e suporte"))
	assert.False(t, ok)
}

func TestCharSimilarityOnLongNames(t *testing.T) {
	got, strategy, ok := Find(New(), "academiaa", opts("Academia", "Almoço"))
	require.True(t, ok)
	assert.Equal(t, StrategyFuzzy, strategy)
	assert.Equal(t, "Academia", got.ID)
}

func TestNumericPrefixBeatsFuzzy(t *testing.T) {
	// "02" é quase idêntico a "O2" mas o prefixo numérico vence
	got, strategy, ok := Find(New(), "02", opts("O2", "02. Real"))
	require.True(t, ok)
	assert.Equal(t, "02. Real", got.ID)
	assert.Equal(t, StrategyNumericPrefix, strategy)
}

func TestTieBreakShortestName(t *testing.T) {
	// mesma pontuação de tokens: fica o nome mais curto
	got, strategy, ok := Find(New(), "contrato", opts("Contrato aluguel", "Contrato social"))
	require.True(t, ok)
	assert.Equal(t, StrategyFuzzy, strategy)
	assert.Equal(t, "Contrato social", got.ID)
}

func TestTieBreakMostRecent(t *testing.T) {
	cands := []Option{
		{ID: "old", Name: "Dentista", Modified: base},
		{ID: "new", Name: "Dentista", Modified: base.Add(time.Hour)},
	}
	got, _, ok := Find(New(), "dentista", cands)
	require.True(t, ok)
	assert.Equal(t, "new", got.ID)
}

func TestResolveRemoteFallback(t *testing.T) {
	searched := 0
	search := func(ctx context.Context, q string) ([]Option, error) {
		searched++
		return opts("Card arquivado antigo"), nil
	}

	got, strategy, ok := Resolve(context.Background(), New(), "card arquivado antigo", opts("Outro"), search)
	require.True(t, ok)
	assert.Equal(t, StrategyRemote, strategy)
	assert.Equal(t, "Card arquivado antigo", got.ID)
	assert.Equal(t, 1, searched)

	// local encontrado: remoto não é chamado
	_, strategy, ok = Resolve(context.Background(), New(), "outro", opts("Outro"), search)
	assert.True(t, ok)
	assert.Equal(t, StrategyExact, strategy)
	assert.Equal(t, 1, searched)
}

func TestResolveRemoteErrorIsNotFound(t *testing.T) {
	search := func(ctx context.Context, q string) ([]Option, error) {
		return nil, errors.New("timeout")
	}
	_, _, ok := Resolve(context.Background(), New(), "qualquer", opts("Outro"), search)
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 1.0, Score("Ação", "acao"))
	assert.Greater(t, Score("urgente", "Urgent"), 0.6)
	assert.Less(t, Score("urgente", "pessoal"), 0.6)
	assert.Equal(t, 0.0, Score("", "x"))
}
