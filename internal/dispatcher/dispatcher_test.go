package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(id, summary string, s, e time.Time) calendar.Event {
	return calendar.Event{ID: id, Summary: summary, Start: s, End: e}
}

func TestCreateEventWithoutConflict(t *testing.T) {
	h := newHarness(t)

	r := h.send("Reunião amanhã às 14h", intent.CreateEvent{Summary: "Reunião", Start: at(11, 14, 0)})

	assert.Contains(t, r.Text, "Reunião")
	evs := h.events.all()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Start.Equal(at(11, 14, 0)))
	assert.True(t, evs[0].End.Equal(at(11, 15, 0)))

	last, ok := h.history.GetLast(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, "create_event", last.Type)
	assert.Equal(t, "delete_event", last.UndoType)
	assert.Equal(t, []string{evs[0].ID}, last.Result)
	assert.Contains(t, h.invalidator.scopes, cache.ScopeEvents)
}

func TestCreateEventConflictOffersSuggestions(t *testing.T) {
	h := newHarness(t,
		ev("a", "Cliente A", at(11, 14, 0), at(11, 15, 0)),
		ev("b", "Cliente B", at(11, 15, 0), at(11, 16, 0)),
	)

	r := h.send("Alinhamento amanhã 14:30", intent.CreateEvent{Summary: "Alinhamento", Start: at(11, 14, 30), End: at(11, 15, 30)})

	assert.Len(t, h.events.all(), 2, "nada deve ser criado antes da escolha")
	assert.Contains(t, r.Text, "conflita")
	assert.Equal(t, "sg:1", buttonData(r, "1."))
	assert.Equal(t, "sg:keep", buttonData(r, "Manter"))

	f := h.flow(t)
	require.NotNil(t, f.PendingEvent)
	require.NotEmpty(t, f.PendingEvent.Suggestions)
	afterBusy := false
	for _, s := range f.PendingEvent.Suggestions {
		assert.Equal(t, time.Hour, s.Duration())
		if !s.Start.Before(at(11, 16, 0)) {
			afterBusy = true
		}
	}
	assert.True(t, afterBusy, "ao menos uma sugestão deve começar depois das 16:00")

	// resposta inválida repete a pergunta sem classificar
	r = h.send("talvez")
	assert.Contains(t, r.Text, "Não entendi")
	assert.Equal(t, 1, h.classifier.calls)
	require.NotNil(t, h.flow(t).PendingEvent)

	first := f.PendingEvent.Suggestions[0]
	r = h.tap("sg:1")
	assert.Contains(t, r.Text, "Evento criado: Alinhamento")
	assert.True(t, h.flow(t).Idle())

	evs := h.events.all()
	require.Len(t, evs, 3)
	var created calendar.Event
	for _, e := range evs {
		if e.Summary == "Alinhamento" {
			created = e
		}
	}
	assert.True(t, created.Start.Equal(first.Start))
}

func TestPendingEventKeepOriginalTime(t *testing.T) {
	h := newHarness(t, ev("a", "Cliente A", at(11, 14, 0), at(11, 15, 0)))

	h.send("Call amanhã 14h", intent.CreateEvent{Summary: "Call", Start: at(11, 14, 0)})
	require.NotNil(t, h.flow(t).PendingEvent)

	r := h.send("manter")
	assert.Contains(t, r.Text, "Evento criado: Call")
	assert.Len(t, h.events.all(), 2)
	assert.True(t, h.flow(t).Idle())
}

func TestPendingEventCancel(t *testing.T) {
	h := newHarness(t, ev("a", "Cliente A", at(11, 14, 0), at(11, 15, 0)))

	h.send("Call amanhã 14h", intent.CreateEvent{Summary: "Call", Start: at(11, 14, 0)})
	r := h.tap("sg:cancel")

	assert.Equal(t, cancelledText, r.Text)
	assert.Len(t, h.events.all(), 1)
	assert.True(t, h.flow(t).Idle())
}

func TestUndoWithEmptyHistory(t *testing.T) {
	h := newHarness(t)

	r := h.send("desfazer")

	assert.Equal(t, nothingToUndo, r.Text)
	assert.Zero(t, h.classifier.calls)
	assert.Zero(t, h.events.calls)
}

func TestCancelPendingTitleUpdate(t *testing.T) {
	h := newHarness(t, ev("a", "Reunião", at(11, 14, 0), at(11, 15, 0)))
	err := h.flows.Await(context.Background(), "u1", state.FlowState{
		PendingEventUpdate: &state.PendingEventUpdate{EventID: "a", Summary: "Reunião", Field: intent.FieldTitle},
	})
	require.NoError(t, err)

	r := h.send("cancelar")

	assert.Equal(t, cancelledText, r.Text)
	assert.True(t, h.flow(t).Idle())
	assert.Empty(t, h.events.updates)
	assert.Zero(t, h.classifier.calls)
}

func TestEventTimeUpdateFlow(t *testing.T) {
	h := newHarness(t, ev("a", "Reunião", at(11, 14, 0), at(11, 15, 0)))

	r := h.send("mudar o horário da reunião", intent.UpdateEvent{Query: "reunião", Field: intent.FieldTime})
	assert.Contains(t, r.Text, "Para qual horário")
	require.NotNil(t, h.flow(t).PendingEventUpdate)

	r = h.send("talvez")
	assert.Contains(t, r.Text, "Não entendi o horário")
	require.NotNil(t, h.flow(t).PendingEventUpdate)
	assert.Empty(t, h.events.updates)

	r = h.send("16h")
	assert.Contains(t, r.Text, "Evento atualizado")
	assert.True(t, h.flow(t).Idle())

	evs := h.events.all()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Start.Equal(at(11, 16, 0)))
	assert.True(t, evs[0].End.Equal(at(11, 17, 0)))
	assert.Equal(t, 1, h.classifier.calls)
}

func TestUpdateEventNotFound(t *testing.T) {
	h := newHarness(t, ev("a", "Reunião", at(11, 14, 0), at(11, 15, 0)))

	r := h.send("mudar dentista para 10h", intent.UpdateEvent{Query: "dentista", Start: at(11, 10, 0)})

	assert.Contains(t, r.Text, "Não encontrei o evento \"dentista\"")
	assert.Empty(t, h.events.updates)
}

func TestBatchFailureIsReportedPerIntent(t *testing.T) {
	h := newHarness(t)
	h.events.createErr = statusErr(400)

	r := h.send("treino amanhã 7h e comprar pão",
		intent.CreateEvent{Summary: "Treino", Start: at(11, 7, 0)},
		intent.CreateTask{Title: "Comprar pão"},
	)

	assert.Contains(t, r.Text, "❌ criar evento \"Treino\"")
	assert.Contains(t, r.Text, "Tarefa criada: Comprar pão")
	assert.NotContains(t, r.Text, "status 400")
	assert.Len(t, h.tasks.tasks, 1)
}

func TestPanicInOneIntentDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t)
	h.board.panicLists = true

	r := h.send("mostra o quadro e cria tarefa",
		intent.TrelloList{},
		intent.CreateTask{Title: "Ligar para o banco"},
	)

	assert.Contains(t, r.Text, genericErrorText)
	assert.Contains(t, r.Text, "Tarefa criada: Ligar para o banco")
}

func TestDeleteEventConfirmationCallbacks(t *testing.T) {
	h := newHarness(t, ev("a", "Dentista", at(11, 10, 0), at(11, 11, 0)))

	r := h.send("remover dentista", intent.DeleteEvent{Query: "dentista"})
	data := buttonData(r, "Confirmar")
	require.NotEmpty(t, data)
	assert.Len(t, h.events.all(), 1)

	r = h.tap("cf:outro:yes")
	assert.Equal(t, staleText, r.Text)
	assert.Len(t, h.events.all(), 1)

	r = h.tap(data)
	assert.Contains(t, r.Text, "Evento removido: Dentista")
	assert.Empty(t, h.events.all())

	r = h.tap(data)
	assert.Equal(t, staleText, r.Text)
}

func TestConfirmationByText(t *testing.T) {
	h := newHarness(t, ev("a", "Dentista", at(11, 10, 0), at(11, 11, 0)))

	h.send("remover dentista", intent.DeleteEvent{Query: "dentista"})
	r := h.send("sim")

	assert.Contains(t, r.Text, "Evento removido")
	assert.Empty(t, h.events.all())
	assert.Equal(t, 1, h.classifier.calls)
}

func TestConfirmationRejected(t *testing.T) {
	h := newHarness(t, ev("a", "Dentista", at(11, 10, 0), at(11, 11, 0)))

	h.send("remover dentista", intent.DeleteEvent{Query: "dentista"})
	r := h.send("não")

	assert.Equal(t, "Ok, nada foi alterado.", r.Text)
	assert.Len(t, h.events.all(), 1)
}

func TestExpiredConfirmationIsStale(t *testing.T) {
	h := newHarness(t, ev("a", "Dentista", at(11, 10, 0), at(11, 11, 0)))

	r := h.send("remover dentista", intent.DeleteEvent{Query: "dentista"})
	data := buttonData(r, "Confirmar")
	h.clock.Advance(3 * time.Minute)

	r = h.tap(data)
	assert.Equal(t, staleText, r.Text)
	assert.Len(t, h.events.all(), 1)
}

func TestUndoCreateEventTwice(t *testing.T) {
	h := newHarness(t)
	h.send("Reunião amanhã às 14h", intent.CreateEvent{Summary: "Reunião", Start: at(11, 14, 0)})
	require.Len(t, h.events.all(), 1)

	r := h.send("desfazer")
	assert.Contains(t, r.Text, "Evento removido: Reunião")
	assert.Empty(t, h.events.all())

	entries := h.history.List(context.Background(), "u1")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Undone)

	r = h.send("desfazer")
	assert.Equal(t, nothingToUndo, r.Text)
}

func TestUndoAlreadyDeletedEvent(t *testing.T) {
	h := newHarness(t)
	h.send("Reunião amanhã às 14h", intent.CreateEvent{Summary: "Reunião", Start: at(11, 14, 0)})
	for _, e := range h.events.all() {
		require.NoError(t, h.events.DeleteEvent(context.Background(), e.ID))
	}

	r := h.send("desfazer")

	assert.Contains(t, r.Text, "já tinha sido removido")
	_, ok := h.history.GetLast(context.Background(), "u1")
	assert.False(t, ok)
}

func boardHarness(t *testing.T) *harness {
	h := newHarness(t)
	h.board.addList("l1", "A Fazer")
	h.board.addList("l2", "Parado")
	h.board.addCard(board.Card{ID: "c1", Name: "03. Contrato Silva", ListID: "l1"})
	h.board.labels = []board.Label{{ID: "lb1", Name: "Urgente"}, {ID: "lb2", Name: "Baixa"}}
	return h
}

func TestTrelloMoveAndUndo(t *testing.T) {
	h := boardHarness(t)

	r := h.send("mover card 03 para parado", intent.TrelloMove{Query: "03", List: "parado"})
	assert.Contains(t, r.Text, "movido de A Fazer para Parado")
	assert.Equal(t, "l2", h.board.cards["c1"].ListID)

	r = h.send("desfazer")
	assert.Contains(t, r.Text, "voltou para A Fazer")
	assert.Equal(t, "l1", h.board.cards["c1"].ListID)
	assert.Contains(t, h.invalidator.scopes, cache.ScopeTrello)
}

func TestTrelloLabelFlow(t *testing.T) {
	h := boardHarness(t)

	r := h.send("colocar etiqueta no contrato silva", intent.TrelloUpdate{Query: "contrato silva", Action: intent.ActionLabel})
	assert.Contains(t, r.Text, "Qual etiqueta")
	require.NotNil(t, h.flow(t).PendingTrelloUpdate)

	r = h.send("xyz")
	assert.Contains(t, r.Text, "Não encontrei a etiqueta")
	require.NotNil(t, h.flow(t).PendingTrelloUpdate)

	r = h.send("urgente")
	assert.Contains(t, r.Text, "Etiqueta Urgente adicionada")
	assert.Equal(t, []string{"c1:lb1"}, h.board.addedLabels)
	assert.True(t, h.flow(t).Idle())
}

func TestTrelloInlineInvalidValueKeepsFlow(t *testing.T) {
	h := boardHarness(t)

	r := h.send("etiqueta xyz no contrato silva", intent.TrelloUpdate{Query: "contrato silva", Action: intent.ActionLabel, Value: "xyz"})
	assert.Contains(t, r.Text, "Não encontrei a etiqueta")
	pending := h.flow(t).PendingTrelloUpdate
	require.NotNil(t, pending)
	assert.Equal(t, "c1", pending.CardID)

	r = h.send("urgente")
	assert.Contains(t, r.Text, "Etiqueta Urgente adicionada")
	assert.Equal(t, []string{"c1:lb1"}, h.board.addedLabels)
	assert.True(t, h.flow(t).Idle())
}

func TestTrelloInlineInvalidDueKeepsFlow(t *testing.T) {
	h := boardHarness(t)

	h.send("prazo do contrato silva", intent.TrelloUpdate{Query: "contrato silva", Action: intent.ActionDue, Value: "qualquer coisa"})
	require.NotNil(t, h.flow(t).PendingTrelloUpdate)
	assert.True(t, h.board.cards["c1"].Due.IsZero())
}

func TestTrelloCreateExplicitPriorityWins(t *testing.T) {
	h := boardHarness(t)

	h.send("novo card", intent.TrelloCreate{
		Name:        "Processo Lima",
		Description: "Prioridade: alta",
		Priority:    "baixa",
	})

	card := h.board.cards["card-1"]
	require.Len(t, card.Labels, 1)
	assert.Equal(t, "lb2", card.Labels[0].ID)
}

func TestTrelloDeleteFlow(t *testing.T) {
	h := boardHarness(t)

	r := h.send("excluir o contrato silva", intent.TrelloDelete{Query: "contrato silva"})
	assert.Equal(t, "td:yes", buttonData(r, "Excluir"))
	require.NotNil(t, h.flow(t).PendingTrelloDelete)

	r = h.tap("td:no")
	assert.Contains(t, r.Text, "foi mantido")
	assert.Contains(t, h.board.cards, "c1")
	assert.True(t, h.flow(t).Idle())

	h.send("excluir o contrato silva", intent.TrelloDelete{Query: "contrato silva"})
	r = h.send("sim")
	assert.Contains(t, r.Text, "Card excluído")
	assert.NotContains(t, h.board.cards, "c1")
}

func TestTrelloCreateUsesStructuredFields(t *testing.T) {
	h := boardHarness(t)
	h.board.labels = append(h.board.labels, board.Label{ID: "lb3", Name: "Alta"})

	r := h.send("novo card", intent.TrelloCreate{
		Name:        "Processo Souza",
		List:        "a fazer",
		Description: "Cliente: Souza\nPrioridade: alta\nPendências:\n- RG\n- Comprovante",
	})

	assert.Contains(t, r.Text, "Card criado: Processo Souza")
	assert.Contains(t, r.Text, "Cliente: Souza")
	card := h.board.cards["card-1"]
	assert.Equal(t, "l1", card.ListID)
	var labelIDs []string
	for _, l := range card.Labels {
		labelIDs = append(labelIDs, l.ID)
	}
	// prioridade alta casa com as etiquetas Urgente e Alta do quadro
	assert.ElementsMatch(t, []string{"lb1", "lb3"}, labelIDs)
	assert.Equal(t, []string{"RG", "Comprovante"}, h.board.checklists["card-1"])

	r = h.send("desfazer")
	assert.Contains(t, r.Text, "Card removido: Processo Souza")
	assert.Equal(t, []string{"card-1"}, h.board.deleted)
}

func TestArchiveListNeedsConfirmation(t *testing.T) {
	h := boardHarness(t)
	h.board.addCard(board.Card{ID: "c2", Name: "04. Recurso Lima", ListID: "l2"})

	r := h.send("arquivar lista parado", intent.TrelloArchiveList{List: "parado"})
	assert.Contains(t, r.Text, "04. Recurso Lima")
	assert.False(t, h.board.cards["c2"].Closed)

	r = h.send("confirmar")
	assert.Contains(t, r.Text, "arquivados")
	assert.True(t, h.board.cards["c2"].Closed)
	assert.False(t, h.board.cards["c1"].Closed)

	r = h.send("desfazer")
	assert.Contains(t, r.Text, "restaurados")
	assert.False(t, h.board.cards["c2"].Closed)
}

func TestCompleteAllEventsAndUndo(t *testing.T) {
	h := newHarness(t,
		ev("a", "Daily", at(10, 10, 0), at(10, 10, 30)),
		ev("b", "Almoço", at(10, 12, 0), at(10, 13, 0)),
	)

	r := h.send("concluir tudo de hoje", intent.CompleteAllEvents{})
	assert.Contains(t, r.Text, "2 eventos")
	require.NotEmpty(t, buttonData(r, "Confirmar"))

	r = h.send("sim")
	assert.Contains(t, r.Text, "2 eventos concluídos")
	for _, e := range h.events.all() {
		assert.True(t, e.Completed(), e.Summary)
	}

	r = h.send("desfazer")
	assert.Contains(t, r.Text, "2 eventos voltaram")
	for _, e := range h.events.all() {
		assert.False(t, e.Completed(), e.Summary)
	}
}

func TestCompleteTaskAndUndo(t *testing.T) {
	h := newHarness(t)
	h.tasks.tasks["t1"] = calendar.Task{ID: "t1", Title: "Pagar boleto"}

	r := h.send("paguei o boleto", intent.CompleteTask{Query: "boleto"})
	assert.Contains(t, r.Text, "Tarefa concluída: Pagar boleto")
	assert.True(t, h.tasks.tasks["t1"].Completed)

	h.send("desfazer")
	assert.False(t, h.tasks.tasks["t1"].Completed)
}

func TestMemoryUpdateFlowAndUndoStore(t *testing.T) {
	h := newHarness(t)

	r := h.send("lembre que a senha do wifi é 1234", intent.StoreMemory{Content: "senha do wifi é 1234"})
	assert.Contains(t, r.Text, "Anotado")

	r = h.send("atualizar a senha do wifi", intent.UpdateMemory{Query: "senha do wifi"})
	assert.Contains(t, r.Text, "Qual o novo conteúdo")
	require.NotNil(t, h.flow(t).PendingKBUpdate)

	r = h.send("senha do wifi é 5678")
	assert.Contains(t, r.Text, "Anotação atualizada: senha do wifi é 5678")
	assert.True(t, h.flow(t).Idle())

	h.invalidator.scopes = nil
	r = h.send("desfazer")
	assert.Contains(t, r.Text, "Anotação apagada")
	assert.Empty(t, h.memory.entries["u1"])
	assert.Equal(t, []cache.Scope{cache.ScopeAll}, h.invalidator.scopes)
}

func TestDaySummary(t *testing.T) {
	h := boardHarness(t)
	h.events.events["a"] = ev("a", "Daily", at(10, 10, 0), at(10, 10, 30))
	h.tasks.tasks["t1"] = calendar.Task{ID: "t1", Title: "Enviar relatório", Due: at(10, 12, 0)}
	h.board.addCard(board.Card{ID: "c9", Name: "Prazo recurso", ListID: "l1", Due: at(10, 18, 0)})

	r := h.send("resumo do dia", intent.DaySummary{})

	assert.Contains(t, r.Text, "Daily")
	assert.Contains(t, r.Text, "Enviar relatório")
	assert.Contains(t, r.Text, "Prazo recurso")
	assert.NotContains(t, r.Text, "Contrato Silva")
}

func TestUnknownIntentUsesClassifierText(t *testing.T) {
	h := newHarness(t)

	r := h.send("vai chover?", intent.Unknown{Type: "weather", Message: "Ainda não sei consultar a previsão do tempo."})

	assert.Equal(t, "Ainda não sei consultar a previsão do tempo.", r.Text)
}

func TestClassifierErrorAsksToRephrase(t *testing.T) {
	h := newHarness(t)
	h.classifier.err = errors.New("saída ilegível")

	r := h.send("asdfgh")

	assert.Equal(t, clarifyText, r.Text)
}

func TestStaleCallbackWithoutFlow(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, staleText, h.tap("sg:1").Text)
	assert.Equal(t, staleText, h.tap("td:yes").Text)
	assert.Equal(t, staleText, h.tap("lixo").Text)
}
