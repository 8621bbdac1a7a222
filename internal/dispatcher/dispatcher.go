package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/retry"
)

// ErrClassifier indica que o classificador falhou (rede ou saída ilegível)
var ErrClassifier = errors.New("erro no classificador")

// quantas mensagens da conversa vão como contexto para o classificador
const historyContext = 6

// Classifier transforma texto livre em intenções
type Classifier interface {
	Interpret(ctx context.Context, text, userID string, history []chat.Message) ([]intent.Intent, error)
}

// Invalidator recebe o aviso de que leituras em cache ficaram velhas
type Invalidator interface {
	Invalidate(scope cache.Scope)
}

// Button é um botão inline; Data volta em HandleCallback
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Reply é a resposta para o usuário
type Reply struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// Deps reúne os colaboradores do despachante. ChatLog e Invalidator são opcionais.
type Deps struct {
	Classifier    Classifier
	Events        calendar.EventStore
	Tasks         calendar.TaskStore
	Board         board.Board
	Memory        memory.Store
	ChatLog       chat.Repository
	Conflicts     *conflict.Engine
	Confirmations *state.ConfirmationStore
	History       *state.ActionHistoryStore
	Flows         *state.FlowStore
	Invalidator   Invalidator
	Matcher       fuzzy.Matcher
	Retry         retry.Policy
	Location      *time.Location
	Now           func() time.Time
	Logger        logger.Logger
}

// Dispatcher executa as intenções de cada mensagem, em ordem, uma mensagem por usuário por vez
type Dispatcher struct {
	classifier    Classifier
	events        calendar.EventStore
	tasks         calendar.TaskStore
	board         board.Board
	memory        memory.Store
	chatLog       chat.Repository
	conflicts     *conflict.Engine
	confirmations *state.ConfirmationStore
	history       *state.ActionHistoryStore
	flows         *state.FlowStore
	invalidator   Invalidator
	matcher       fuzzy.Matcher
	retry         retry.Policy
	loc           *time.Location
	now           func() time.Time
	logger        logger.Logger
	locks         *state.KeyedMutex
}

func New(deps Deps) *Dispatcher {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Matcher.Threshold == 0 {
		deps.Matcher = fuzzy.New()
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = retry.DefaultPolicy()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	return &Dispatcher{
		classifier:    deps.Classifier,
		events:        deps.Events,
		tasks:         deps.Tasks,
		board:         deps.Board,
		memory:        deps.Memory,
		chatLog:       deps.ChatLog,
		conflicts:     deps.Conflicts,
		confirmations: deps.Confirmations,
		history:       deps.History,
		flows:         deps.Flows,
		invalidator:   deps.Invalidator,
		matcher:       deps.Matcher,
		retry:         deps.Retry,
		loc:           deps.Location,
		now:           deps.Now,
		logger:        deps.Logger,
		locks:         state.NewKeyedMutex(),
	}
}

// result é a saída de uma única intenção
type result struct {
	text    string
	buttons [][]Button
	status  string // ok, not_found, pending, error
}

func done(text string) result     { return result{text: text, status: "ok"} }
func notFound(text string) result { return result{text: text, status: "not_found"} }

func pending(text string, buttons ...[]Button) result {
	return result{text: text, buttons: buttons, status: "pending"}
}

func failed(text string) result { return result{text: text, status: "error"} }

func (r result) reply() Reply {
	return Reply{Text: r.text, Buttons: r.buttons}
}

func (d *Dispatcher) nowLocal() time.Time {
	return d.now().In(d.loc)
}

// HandleMessage trata uma mensagem de texto. Ordem: desfazer explícito, fluxo
// pendente, resposta de confirmação e, por fim, classificação.
func (d *Dispatcher) HandleMessage(ctx context.Context, userID, text string) Reply {
	unlock := d.locks.Lock(userID)
	defer unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: helpText}
	}

	reply := d.handleMessage(ctx, userID, text)
	d.logConversation(ctx, userID, text, reply.Text)
	return reply
}

func (d *Dispatcher) handleMessage(ctx context.Context, userID, text string) Reply {
	if isUndoCommand(text) {
		return d.runIsolated(ctx, userID, intent.Undo{}).reply()
	}

	flow, err := d.flows.Get(ctx, userID)
	if err != nil {
		d.logger.Error("Erro ao carregar fluxo pendente", "user_id", userID, "error", err)
	} else if !flow.Idle() {
		return d.handleFlow(ctx, userID, flow, text)
	}

	if isYes(text) || isNo(text) {
		c, found, err := d.confirmations.Get(ctx, userID)
		if err != nil {
			d.logger.Error("Erro ao carregar confirmação", "user_id", userID, "error", err)
		} else if found {
			return d.resolveConfirmation(ctx, userID, c.ID, isYes(text))
		}
	}

	intents, err := d.classify(ctx, userID, text)
	if err != nil {
		d.logger.Warn("Não foi possível classificar a mensagem", "user_id", userID, "error", err)
		return Reply{Text: clarifyText}
	}
	return d.dispatch(ctx, userID, intents)
}

// HandleCallback trata o toque num botão inline
func (d *Dispatcher) HandleCallback(ctx context.Context, userID, data string) Reply {
	unlock := d.locks.Lock(userID)
	defer unlock()

	parts := strings.Split(data, ":")
	switch {
	case len(parts) == 3 && parts[0] == "cf":
		return d.resolveConfirmation(ctx, userID, parts[1], parts[2] == "yes")
	case len(parts) == 2 && (parts[0] == "sg" || parts[0] == "td"):
		flow, err := d.flows.Get(ctx, userID)
		if err != nil {
			d.logger.Error("Erro ao carregar fluxo pendente", "user_id", userID, "error", err)
			return Reply{Text: userFacingError(err)}
		}
		if parts[0] == "sg" && flow.PendingEvent != nil {
			return d.answerPendingEvent(ctx, userID, *flow.PendingEvent, callbackAnswer(parts[1]))
		}
		if parts[0] == "td" && flow.PendingTrelloDelete != nil {
			return d.answerTrelloDelete(ctx, userID, *flow.PendingTrelloDelete, callbackAnswer(parts[1]))
		}
	}
	return Reply{Text: staleText}
}

// callbackAnswer traduz o dado do botão para a mesma resposta aceita em texto
func callbackAnswer(v string) string {
	switch v {
	case "keep":
		return "manter"
	case "cancel", "no":
		return "cancelar"
	case "yes":
		return "sim"
	}
	return v
}

func (d *Dispatcher) classify(ctx context.Context, userID, text string) ([]intent.Intent, error) {
	var history []chat.Message
	if d.chatLog != nil {
		h, err := d.chatLog.GetUserHistory(ctx, userID, historyContext, 0)
		if err != nil {
			d.logger.Warn("Erro ao recuperar histórico de mensagens", "user_id", userID, "error", err)
		}
		history = h
	}

	intents, err := d.classifier.Interpret(ctx, text, userID, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifier, err)
	}
	if len(intents) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrClassifier, intent.ErrEmpty)
	}
	return intents, nil
}

// dispatch roda as intenções em sequência; a falha de uma não interrompe as outras
func (d *Dispatcher) dispatch(ctx context.Context, userID string, intents []intent.Intent) Reply {
	if len(intents) == 1 {
		return d.runIsolated(ctx, userID, intents[0]).reply()
	}

	var texts []string
	var buttons [][]Button
	for _, it := range intents {
		res := d.runIsolated(ctx, userID, it)
		text := res.text
		if res.status == "error" {
			text = fmt.Sprintf("❌ %s: %s", intentLabel(it), res.text)
		}
		texts = append(texts, text)
		if len(res.buttons) > 0 {
			buttons = res.buttons
		}
	}
	return Reply{Text: strings.Join(texts, "\n\n"), Buttons: buttons}
}

// runIsolated executa uma intenção protegendo o processo contra panics
func (d *Dispatcher) runIsolated(ctx context.Context, userID string, it intent.Intent) (res result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic ao executar intenção",
				"user_id", userID,
				"intent", string(it.Kind()),
				"panic", r,
				"stack", string(debug.Stack()))
			res = failed(genericErrorText)
		}
		metrics.RecordIntent(string(it.Kind()), res.status)
	}()

	res = d.route(ctx, userID, it)
	if res.status == "" {
		res.status = "ok"
	}
	return res
}

func (d *Dispatcher) route(ctx context.Context, userID string, it intent.Intent) result {
	switch v := it.(type) {
	case intent.CreateEvent:
		return d.createEvent(ctx, userID, v)
	case intent.ListEvents:
		return d.listEvents(ctx, v)
	case intent.UpdateEvent:
		return d.updateEvent(ctx, userID, v)
	case intent.DeleteEvent:
		return d.deleteEvent(ctx, userID, v)
	case intent.CompleteEvent:
		return d.completeEvent(ctx, userID, v)
	case intent.CompleteAllEvents:
		return d.completeAllEvents(ctx, userID, v)

	case intent.CreateTask:
		return d.createTask(ctx, userID, v)
	case intent.ListTasks:
		return d.listTasks(ctx)
	case intent.CompleteTask:
		return d.completeTask(ctx, userID, v)
	case intent.DeleteTask:
		return d.deleteTask(ctx, v)

	case intent.TrelloCreate:
		return d.trelloCreate(ctx, userID, v)
	case intent.TrelloList:
		return d.trelloList(ctx, v)
	case intent.TrelloMove:
		return d.trelloMove(ctx, userID, v)
	case intent.TrelloUpdate:
		return d.trelloUpdate(ctx, userID, v)
	case intent.TrelloArchive:
		return d.trelloArchive(ctx, userID, v)
	case intent.TrelloArchiveList:
		return d.trelloArchiveList(ctx, userID, v)
	case intent.TrelloDelete:
		return d.trelloDelete(ctx, userID, v)
	case intent.TrelloComment:
		return d.trelloComment(ctx, v)
	case intent.TrelloSearch:
		return d.trelloSearch(ctx, v)
	case intent.TrelloDetails:
		return d.trelloDetails(ctx, v)

	case intent.StoreMemory:
		return d.storeMemory(ctx, userID, v)
	case intent.QueryMemory:
		return d.queryMemory(ctx, userID, v)
	case intent.ListMemory:
		return d.listMemory(ctx, userID)
	case intent.UpdateMemory:
		return d.updateMemory(ctx, userID, v)
	case intent.DeleteMemory:
		return d.deleteMemory(ctx, userID, v)

	case intent.Undo:
		return d.undo(ctx, userID)
	case intent.DaySummary:
		return d.daySummary(ctx, v)
	case intent.Chat:
		if v.Message == "" {
			return done("Como posso ajudar?")
		}
		return done(v.Message)
	case intent.Unknown:
		if v.Message != "" {
			return done(v.Message)
		}
		return notFound(clarifyText)
	case intent.Invalid:
		d.logger.Warn("Intenção inválida", "user_id", userID, "type", v.Type, "reason", v.Reason)
		return failed("Não consegui entender parte do pedido: " + v.Reason)
	}

	d.logger.Error("Intenção sem tratamento", "user_id", userID, "intent", string(it.Kind()))
	return failed(clarifyText)
}

// invalidate avisa o cache; é só um sinal, nunca bloqueia a resposta
func (d *Dispatcher) invalidate(scope cache.Scope) {
	if d.invalidator != nil {
		d.invalidator.Invalidate(scope)
	}
}

// failure registra o erro e devolve a mensagem segura para o usuário
func (d *Dispatcher) failure(userID, op string, err error) result {
	d.logger.Error("Erro ao executar ação", "user_id", userID, "op", op, "error", err)
	return failed(userFacingError(err))
}

func (d *Dispatcher) logConversation(ctx context.Context, userID, text, reply string) {
	if d.chatLog == nil {
		return
	}
	now := d.now()
	for _, m := range []*chat.Message{
		{UserID: userID, Role: chat.RoleUser, Content: text, Timestamp: now},
		{UserID: userID, Role: chat.RoleAssistant, Content: reply, Timestamp: now.Add(time.Millisecond)},
	} {
		if err := d.chatLog.SaveMessage(ctx, m); err != nil {
			d.logger.Warn("Erro ao salvar mensagem no histórico", "user_id", userID, "error", err)
			return
		}
	}
}

// ActionHistory expõe o histórico de ações do usuário para a API
func (d *Dispatcher) ActionHistory(ctx context.Context, userID string) []state.HistoryEntry {
	return d.history.List(ctx, userID)
}
