package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/dispatcher"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

// limite de caracteres de uma mensagem do Telegram
const maxMessageLen = 4096

// capacidade da fila de cada usuário antes de bloquear o polling
const queueSize = 32

// Handler é o lado do bot que transforma mensagens em respostas
type Handler interface {
	HandleMessage(ctx context.Context, userID, text string) dispatcher.Reply
	HandleCallback(ctx context.Context, userID, data string) dispatcher.Reply
	DaySummary(ctx context.Context, userID string) dispatcher.Reply
	Undo(ctx context.Context, userID string) dispatcher.Reply
	Help() string
}

// Bot é o subconjunto de *tgbotapi.BotAPI usado pelo canal
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

type Config struct {
	AllowedUserIDs []int64
	PollTimeout    int
}

// Channel recebe updates por long polling e entrega cada usuário numa fila serial
type Channel struct {
	bot     Bot
	handler Handler
	allowed map[int64]bool
	timeout int
	logger  logger.Logger

	mu     sync.Mutex
	queues map[int64]chan tgbotapi.Update
	wg     sync.WaitGroup
}

// New conecta na API do Telegram com o token informado
func New(token string, cfg Config, handler Handler, log logger.Logger) (*Channel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("Conectado ao Telegram", "bot", api.Self.UserName)
	return NewChannel(api, cfg, handler, log), nil
}

func NewChannel(bot Bot, cfg Config, handler Handler, log logger.Logger) *Channel {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	allowed := make(map[int64]bool, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		allowed[id] = true
	}
	return &Channel{
		bot:     bot,
		handler: handler,
		allowed: allowed,
		timeout: cfg.PollTimeout,
		logger:  log,
		queues:  make(map[int64]chan tgbotapi.Update),
	}
}

// Start consome updates até o contexto ser cancelado e espera as filas esvaziarem
func (c *Channel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.timeout
	updates := c.bot.GetUpdatesChan(u)

	defer func() {
		c.mu.Lock()
		for id, q := range c.queues {
			close(q)
			delete(c.queues, id)
		}
		c.mu.Unlock()
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			c.enqueue(ctx, upd)
		}
	}
}

func (c *Channel) enqueue(ctx context.Context, upd tgbotapi.Update) {
	from := sender(upd)
	if from == nil {
		return
	}
	if len(c.allowed) > 0 && !c.allowed[from.ID] {
		c.logger.Warn("Update de usuário não autorizado ignorado", "user_id", from.ID)
		return
	}

	c.mu.Lock()
	q, ok := c.queues[from.ID]
	if !ok {
		q = make(chan tgbotapi.Update, queueSize)
		c.queues[from.ID] = q
		c.wg.Add(1)
		go c.worker(ctx, q)
	}
	c.mu.Unlock()

	select {
	case q <- upd:
	case <-ctx.Done():
	}
}

// worker processa as mensagens de um usuário na ordem de chegada
func (c *Channel) worker(ctx context.Context, q <-chan tgbotapi.Update) {
	defer c.wg.Done()
	for upd := range q {
		c.process(ctx, upd)
	}
}

func (c *Channel) process(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic ao processar update", "update_id", upd.UpdateID, "panic", r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		c.processCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		c.processMessage(ctx, upd.Message)
	}
}

func (c *Channel) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	var reply dispatcher.Reply
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "ajuda", "help":
			reply = dispatcher.Reply{Text: c.handler.Help()}
		case "desfazer":
			reply = c.handler.Undo(ctx, userID)
		case "hoje":
			reply = c.handler.DaySummary(ctx, userID)
		default:
			reply = dispatcher.Reply{Text: "Comando desconhecido. Use /ajuda para ver o que eu sei fazer."}
		}
	} else {
		reply = c.handler.HandleMessage(ctx, userID, text)
	}
	c.send(msg.Chat.ID, reply)
}

func (c *Channel) processCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		c.logger.Warn("Erro ao responder callback", "callback_id", cb.ID, "error", err)
	}
	if cb.Message == nil {
		return
	}

	// tira os botões da mensagem original para não serem tocados de novo
	strip := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := c.bot.Request(strip); err != nil {
		c.logger.Debug("Não foi possível remover os botões", "error", err)
	}

	reply := c.handler.HandleCallback(ctx, strconv.FormatInt(cb.From.ID, 10), cb.Data)
	c.send(cb.Message.Chat.ID, reply)
}

func (c *Channel) send(chatID int64, reply dispatcher.Reply) {
	chunks := splitText(reply.Text, maxMessageLen)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && len(reply.Buttons) > 0 {
			msg.ReplyMarkup = keyboard(reply.Buttons)
		}
		if _, err := c.bot.Send(msg); err != nil {
			c.logger.Error("Erro ao enviar mensagem", "chat_id", chatID, "error", err)
			return
		}
	}
}

func keyboard(rows [][]dispatcher.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func sender(upd tgbotapi.Update) *tgbotapi.User {
	switch {
	case upd.CallbackQuery != nil:
		return upd.CallbackQuery.From
	case upd.Message != nil:
		return upd.Message.From
	}
	return nil
}

// splitText quebra o texto em pedaços de até limit caracteres, preferindo quebras de linha
func splitText(text string, limit int) []string {
	if text == "" {
		return []string{"…"}
	}
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	return append(chunks, text)
}
