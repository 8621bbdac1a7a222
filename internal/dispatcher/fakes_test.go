package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/retry"
)

var loc = time.FixedZone("BRT", -3*3600)

// terça-feira, 10/03/2026 09:00
var start = time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, loc)
}

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeClassifier devolve as intenções enfileiradas, uma resposta por chamada
type fakeClassifier struct {
	responses [][]intent.Intent
	err       error
	calls     int
}

func (f *fakeClassifier) Interpret(_ context.Context, _, _ string, _ []chat.Message) ([]intent.Intent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return []intent.Intent{intent.Chat{}}, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func (f *fakeClassifier) queue(intents ...intent.Intent) {
	f.responses = append(f.responses, intents)
}

type fakeEvents struct {
	mu        sync.Mutex
	events    map[string]calendar.Event
	seq       int
	createErr error
	calls     int
	updates   []calendar.EventPatch
}

func newFakeEvents(evs ...calendar.Event) *fakeEvents {
	f := &fakeEvents{events: map[string]calendar.Event{}}
	for _, ev := range evs {
		f.events[ev.ID] = ev
	}
	return f
}

func (f *fakeEvents) ListEvents(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []calendar.Event
	for _, ev := range f.events {
		if ev.Overlaps(from, to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *fakeEvents) CreateEvent(_ context.Context, in calendar.EventInput) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return calendar.Event{}, f.createErr
	}
	f.seq++
	ev := calendar.Event{
		ID:          fmt.Sprintf("ev-%d", f.seq),
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       in.Start,
		End:         in.End,
		AllDay:      in.AllDay,
	}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeEvents) UpdateEvent(_ context.Context, id string, patch calendar.EventPatch) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	ev, ok := f.events[id]
	if !ok {
		return calendar.Event{}, statusErr(404)
	}
	f.updates = append(f.updates, patch)
	if patch.Summary != nil {
		ev.Summary = *patch.Summary
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	f.events[id] = ev
	return ev, nil
}

func (f *fakeEvents) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.events[id]; !ok {
		return statusErr(404)
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEvents) all() []calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]calendar.Event, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type fakeTasks struct {
	tasks     map[string]calendar.Task
	seq       int
	createErr error
}

func newFakeTasks(ts ...calendar.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[string]calendar.Task{}}
	for _, t := range ts {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) ListTasks(_ context.Context, includeCompleted bool) ([]calendar.Task, error) {
	var out []calendar.Task
	for _, t := range f.tasks {
		if includeCompleted || !t.Completed {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) CreateTask(_ context.Context, in calendar.TaskInput) (calendar.Task, error) {
	if f.createErr != nil {
		return calendar.Task{}, f.createErr
	}
	f.seq++
	t := calendar.Task{ID: fmt.Sprintf("task-%d", f.seq), Title: in.Title, Notes: in.Notes, Due: in.Due}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTasks) SetTaskCompleted(_ context.Context, id string, completed bool) (calendar.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return calendar.Task{}, statusErr(404)
	}
	t.Completed = completed
	f.tasks[id] = t
	return t, nil
}

func (f *fakeTasks) DeleteTask(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return statusErr(404)
	}
	delete(f.tasks, id)
	return nil
}

type fakeBoard struct {
	lists      []board.List
	cards      map[string]board.Card
	labels     []board.Label
	seq        int
	panicLists bool

	addedLabels []string
	checklists  map[string][]string
	comments    map[string][]string
	deleted     []string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		cards:      map[string]board.Card{},
		checklists: map[string][]string{},
		comments:   map[string][]string{},
	}
}

func (f *fakeBoard) addList(id, name string) {
	f.lists = append(f.lists, board.List{ID: id, Name: name})
}

func (f *fakeBoard) addCard(c board.Card) {
	f.cards[c.ID] = c
}

func (f *fakeBoard) ListCards(_ context.Context) ([]board.Card, error) {
	var out []board.Card
	for _, c := range f.cards {
		if !c.Closed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBoard) ListLists(ctx context.Context) ([]board.List, error) {
	if f.panicLists {
		panic("lists indisponíveis")
	}
	cards, _ := f.ListCards(ctx)
	out := make([]board.List, len(f.lists))
	for i, l := range f.lists {
		l.Cards = nil
		for _, c := range cards {
			if c.ListID == l.ID {
				c.ListName = l.Name
				l.Cards = append(l.Cards, c)
			}
		}
		out[i] = l
	}
	return out, nil
}

func (f *fakeBoard) Labels(_ context.Context) ([]board.Label, error) {
	return f.labels, nil
}

func (f *fakeBoard) CreateCard(_ context.Context, in board.CardInput) (board.Card, error) {
	f.seq++
	c := board.Card{ID: fmt.Sprintf("card-%d", f.seq), Name: in.Name, Desc: in.Desc, ListID: in.ListID, Due: in.Due}
	for _, id := range in.LabelIDs {
		for _, l := range f.labels {
			if l.ID == id {
				c.Labels = append(c.Labels, l)
			}
		}
	}
	f.cards[c.ID] = c
	return c, nil
}

func (f *fakeBoard) UpdateCard(_ context.Context, id string, patch board.CardPatch) (board.Card, error) {
	c, ok := f.cards[id]
	if !ok {
		return board.Card{}, statusErr(404)
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Desc != nil {
		c.Desc = *patch.Desc
	}
	if patch.ListID != nil {
		c.ListID = *patch.ListID
	}
	if patch.Due != nil {
		c.Due = *patch.Due
	}
	if patch.Closed != nil {
		c.Closed = *patch.Closed
	}
	f.cards[id] = c
	return c, nil
}

func (f *fakeBoard) DeleteCard(_ context.Context, id string) error {
	if _, ok := f.cards[id]; !ok {
		return statusErr(404)
	}
	delete(f.cards, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBoard) Search(_ context.Context, query string) ([]board.Card, error) {
	var out []board.Card
	for _, c := range f.cards {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBoard) AddLabel(_ context.Context, cardID, labelID string) error {
	f.addedLabels = append(f.addedLabels, cardID+":"+labelID)
	return nil
}

func (f *fakeBoard) AddChecklist(_ context.Context, cardID, _ string, items []string) error {
	f.checklists[cardID] = append(f.checklists[cardID], items...)
	return nil
}

func (f *fakeBoard) AddComment(_ context.Context, cardID, text string) error {
	f.comments[cardID] = append(f.comments[cardID], text)
	return nil
}

type fakeMemory struct {
	entries map[string][]memory.Entry
	seq     int
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{entries: map[string][]memory.Entry{}}
}

func (f *fakeMemory) Store(_ context.Context, userID, content, category string) (memory.Entry, error) {
	f.seq++
	e := memory.Entry{ID: fmt.Sprintf("mem-%d", f.seq), UserID: userID, Content: content, Category: category}
	f.entries[userID] = append(f.entries[userID], e)
	return e, nil
}

func (f *fakeMemory) Query(_ context.Context, userID, query string) ([]memory.Entry, error) {
	var out []memory.Entry
	for _, e := range f.entries[userID] {
		if strings.Contains(strings.ToLower(e.Content), strings.ToLower(query)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeMemory) List(_ context.Context, userID string) ([]memory.Entry, error) {
	return append([]memory.Entry(nil), f.entries[userID]...), nil
}

func (f *fakeMemory) Update(_ context.Context, userID, id, content string) (memory.Entry, error) {
	for i, e := range f.entries[userID] {
		if e.ID == id {
			e.Content = content
			f.entries[userID][i] = e
			return e, nil
		}
	}
	return memory.Entry{}, memory.ErrNotFound
}

func (f *fakeMemory) Delete(_ context.Context, userID, id string) error {
	list := f.entries[userID]
	for i, e := range list {
		if e.ID == id {
			f.entries[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return memory.ErrNotFound
}

type fakeInvalidator struct {
	scopes []cache.Scope
}

func (f *fakeInvalidator) Invalidate(scope cache.Scope) {
	f.scopes = append(f.scopes, scope)
}

// harness reúne o despachante e todos os colaboradores falsos
type harness struct {
	d           *Dispatcher
	classifier  *fakeClassifier
	events      *fakeEvents
	tasks       *fakeTasks
	board       *fakeBoard
	memory      *fakeMemory
	invalidator *fakeInvalidator
	flows       *state.FlowStore
	history     *state.ActionHistoryStore
	clock       *clock
}

func newHarness(t *testing.T, evs ...calendar.Event) *harness {
	t.Helper()

	h := &harness{
		classifier:  &fakeClassifier{},
		events:      newFakeEvents(evs...),
		tasks:       newFakeTasks(),
		board:       newFakeBoard(),
		memory:      newFakeMemory(),
		invalidator: &fakeInvalidator{},
		clock:       &clock{t: start},
	}
	log := logger.NewNop()
	h.flows = state.NewFlowStore(state.NewMemoryStore[state.FlowState](), h.clock.Now)
	h.history = state.NewActionHistoryStore(state.NewMemoryStore[[]state.HistoryEntry](), 0, h.clock.Now, log)

	h.d = New(Deps{
		Classifier:    h.classifier,
		Events:        h.events,
		Tasks:         h.tasks,
		Board:         h.board,
		Memory:        h.memory,
		Conflicts:     conflict.NewEngine(h.events, conflict.DefaultConfig(), h.clock.Now),
		Confirmations: state.NewConfirmationStore(state.NewMemoryStore[state.Confirmation](), 0, h.clock.Now),
		History:       h.history,
		Flows:         h.flows,
		Invalidator:   h.invalidator,
		Retry: retry.Policy{
			MaxAttempts: 2,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		},
		Location: loc,
		Now:      h.clock.Now,
		Logger:   log,
	})
	return h
}

func (h *harness) send(text string, intents ...intent.Intent) Reply {
	if len(intents) > 0 {
		h.classifier.queue(intents...)
	}
	return h.d.HandleMessage(context.Background(), "u1", text)
}

func (h *harness) tap(data string) Reply {
	return h.d.HandleCallback(context.Background(), "u1", data)
}

func (h *harness) flow(t *testing.T) state.FlowState {
	t.Helper()
	f, err := h.flows.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("erro ao carregar fluxo: %v", err)
	}
	return f
}

// buttonData devolve o dado do primeiro botão cujo texto contém label
func buttonData(r Reply, label string) string {
	for _, row := range r.Buttons {
		for _, b := range row {
			if strings.Contains(b.Text, label) {
				return b.Data
			}
		}
	}
	return ""
}
