package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/circuitbreaker"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
	"google.golang.org/genai"
)

// ErrEmptyResponse é retornado quando o modelo não devolve texto
var ErrEmptyResponse = errors.New("resposta vazia do modelo")

// Generator produz o texto bruto do modelo
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Classifier transforma texto livre em intenções usando o Gemini
type Classifier struct {
	gen     Generator
	breaker *circuitbreaker.CircuitBreaker
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
	logger  logger.Logger
}

func NewClassifier(gen Generator, breaker *circuitbreaker.CircuitBreaker, loc *time.Location, timeout time.Duration, log logger.Logger) *Classifier {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Classifier{gen: gen, breaker: breaker, loc: loc, now: time.Now, timeout: timeout, logger: log}
}

// WithClock troca o relógio, usado em testes
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Interpret devolve as intenções da mensagem. Erro de rede, disjuntor aberto
// ou JSON ilegível voltam como erro; conversa sem ação volta como intent.Chat.
func (c *Classifier) Interpret(ctx context.Context, text, userID string, history []chat.Message) ([]intent.Intent, error) {
	prompt := buildPrompt(text, c.now().In(c.loc), history)

	var raw string
	start := time.Now()
	err := c.breaker.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		out, err := c.gen.Generate(callCtx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	metrics.RecordRemoteCall("gemini", "interpret", err, time.Since(start))
	if err != nil {
		c.logger.Error("Erro ao chamar o classificador", "user_id", userID, "breaker", c.breaker.State().String(), "error", err)
		return nil, fmt.Errorf("erro ao classificar mensagem: %w", err)
	}

	intents, err := intent.DecodeIn([]byte(raw), c.loc)
	if err != nil {
		c.logger.Warn("Saída do classificador ilegível", "user_id", userID, "raw", truncate(raw, 200), "error", err)
		return nil, err
	}

	c.logger.Debug("Mensagem classificada", "user_id", userID, "intents", len(intents))
	return intents, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GenAI implementa Generator com o SDK google.golang.org/genai
type GenAI struct {
	client *genai.Client
	model  string
}

func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cliente Gemini: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GenAI{client: client, model: model}, nil
}

func (g *GenAI) Generate(ctx context.Context, system, prompt string) (string, error) {
	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
