package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/circuitbreaker"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	out    string
	err    error
	prompt string
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

var brt = time.FixedZone("BRT", -3*3600)

func newClassifier(gen Generator, cb *circuitbreaker.CircuitBreaker) *Classifier {
	return NewClassifier(gen, cb, brt, time.Second, logger.NewNop()).
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, brt) })
}

func TestInterpretDecodesArray(t *testing.T) {
	gen := &fakeGenerator{out: "```json\n[{\"type\":\"create_event\",\"summary\":\"Reunião\",\"start\":\"2026-03-11T14:00\"},{\"type\":\"list_tasks\"}]\n```"}
	c := newClassifier(gen, nil)

	history := []chat.Message{
		{Role: chat.RoleAssistant, Content: "Pronto!"},
		{Role: chat.RoleUser, Content: "oi"},
	}
	intents, err := c.Interpret(context.Background(), "Reunião amanhã às 14h e minhas tarefas", "u1", history)
	require.NoError(t, err)
	require.Len(t, intents, 2)

	ev, ok := intents[0].(intent.CreateEvent)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 14, 0, 0, 0, brt), ev.Start)
	assert.IsType(t, intent.ListTasks{}, intents[1])

	assert.Contains(t, gen.prompt, "2026-03-10T09:00")
	assert.Contains(t, gen.prompt, "terça-feira")
	// histórico em ordem cronológica
	assert.Less(t, strings.Index(gen.prompt, "Usuário: oi"), strings.Index(gen.prompt, "Assistente: Pronto!"))
}

func TestInterpretGarbageIsError(t *testing.T) {
	c := newClassifier(&fakeGenerator{out: "desculpe, não entendi"}, nil)
	_, err := c.Interpret(context.Background(), "??", "u1", nil)
	assert.Error(t, err)
}

func TestInterpretBreakerOpens(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("503 unavailable")}
	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})
	c := newClassifier(gen, cb)

	for i := 0; i < 2; i++ {
		_, err := c.Interpret(context.Background(), "oi", "u1", nil)
		require.Error(t, err)
	}
	_, err := c.Interpret(context.Background(), "oi", "u1", nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, gen.calls)
}
