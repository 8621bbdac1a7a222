package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/dispatcher"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

type fakeBot struct {
	updates chan tgbotapi.Update

	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 16)}
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) StopReceivingUpdates() {}

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.sent...)
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []string
	delay time.Duration
}

func (h *fakeHandler) record(s string) {
	h.mu.Lock()
	h.calls = append(h.calls, s)
	h.mu.Unlock()
}

func (h *fakeHandler) HandleMessage(_ context.Context, userID, text string) dispatcher.Reply {
	time.Sleep(h.delay)
	h.record(userID + ":" + text)
	if text == "apagar" {
		return dispatcher.Reply{Text: "Confirma?", Buttons: [][]dispatcher.Button{{{Text: "✅", Data: "cf:1:yes"}}}}
	}
	return dispatcher.Reply{Text: "eco " + text}
}

func (h *fakeHandler) HandleCallback(_ context.Context, userID, data string) dispatcher.Reply {
	h.record(userID + ":cb:" + data)
	return dispatcher.Reply{Text: "ok " + data}
}

func (h *fakeHandler) DaySummary(_ context.Context, userID string) dispatcher.Reply {
	h.record(userID + ":hoje")
	return dispatcher.Reply{Text: "resumo"}
}

func (h *fakeHandler) Undo(_ context.Context, userID string) dispatcher.Reply {
	h.record(userID + ":desfazer")
	return dispatcher.Reply{Text: "desfeito"}
}

func (h *fakeHandler) Help() string { return "ajuda" }

func (h *fakeHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func textUpdate(id int, userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{UpdateID: id, Message: msg}
}

func run(t *testing.T, cfg Config, h *fakeHandler) (*fakeBot, func()) {
	t.Helper()
	bot := newFakeBot()
	ch := NewChannel(bot, cfg, h, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ch.Start(ctx)
		close(done)
	}()
	return bot, func() {
		cancel()
		<-done
	}
}

func TestMessagesAreAnsweredInOrderPerUser(t *testing.T) {
	h := &fakeHandler{delay: 5 * time.Millisecond}
	bot, stop := run(t, Config{}, h)

	for i, text := range []string{"um", "dois", "três"} {
		bot.updates <- textUpdate(i+1, 10, text)
	}
	require.Eventually(t, func() bool { return len(bot.messages()) == 3 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"10:um", "10:dois", "10:três"}, h.seen())
	for i, msg := range bot.messages() {
		assert.Equal(t, int64(10), msg.ChatID)
		assert.Equal(t, "eco "+[]string{"um", "dois", "três"}[i], msg.Text)
	}
}

func TestCommands(t *testing.T) {
	h := &fakeHandler{}
	bot, stop := run(t, Config{}, h)

	bot.updates <- textUpdate(1, 7, "/start")
	bot.updates <- textUpdate(2, 7, "/hoje")
	bot.updates <- textUpdate(3, 7, "/desfazer")
	bot.updates <- textUpdate(4, 7, "/xyz")
	require.Eventually(t, func() bool { return len(bot.messages()) == 4 }, time.Second, 5*time.Millisecond)
	stop()

	msgs := bot.messages()
	assert.Equal(t, "ajuda", msgs[0].Text)
	assert.Equal(t, "resumo", msgs[1].Text)
	assert.Equal(t, "desfeito", msgs[2].Text)
	assert.Contains(t, msgs[3].Text, "Comando desconhecido")
	assert.Equal(t, []string{"7:hoje", "7:desfazer"}, h.seen())
}

func TestUnauthorizedUsersAreIgnored(t *testing.T) {
	h := &fakeHandler{}
	bot, stop := run(t, Config{AllowedUserIDs: []int64{1}}, h)

	bot.updates <- textUpdate(1, 2, "oi")
	bot.updates <- textUpdate(2, 1, "oi")
	require.Eventually(t, func() bool { return len(bot.messages()) == 1 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{"1:oi"}, h.seen())
}

func TestButtonsAndCallbacks(t *testing.T) {
	h := &fakeHandler{}
	bot, stop := run(t, Config{}, h)

	bot.updates <- textUpdate(1, 5, "apagar")
	require.Eventually(t, func() bool { return len(bot.messages()) == 1 }, time.Second, 5*time.Millisecond)

	markup, ok := bot.messages()[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cf:1:yes", *markup.InlineKeyboard[0][0].CallbackData)

	bot.updates <- tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 5}},
		Data:    "cf:1:yes",
	}}
	require.Eventually(t, func() bool { return len(bot.messages()) == 2 }, time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, "ok cf:1:yes", bot.messages()[1].Text)
	assert.Equal(t, []string{"5:apagar", "5:cb:cf:1:yes"}, h.seen())
	bot.mu.Lock()
	assert.Len(t, bot.requests, 2)
	bot.mu.Unlock()
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"abc"}, splitText("abc", 10))
	assert.Equal(t, []string{"…"}, splitText("", 10))

	chunks := splitText("linha um\nlinha dois\nlinha três", 12)
	assert.Equal(t, []string{"linha um", "linha dois", "linha três"}, chunks)

	long := strings.Repeat("é", 25)
	chunks = splitText(long, 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("é", 5), chunks[2])
}
