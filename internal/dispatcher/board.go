package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
)

// máximo de cards exibidos numa busca
const maxSearchResults = 10

// nomes de etiqueta aceitos para cada prioridade extraída da descrição
var priorityLabels = map[string][]string{
	"high":   {"alta", "urgente", "alta prioridade"},
	"medium": {"media", "média", "media prioridade"},
	"low":    {"baixa", "baixa prioridade"},
}

func (d *Dispatcher) fetchLists(ctx context.Context) ([]board.List, error) {
	return call(ctx, d, "trello", "list_lists", func(ctx context.Context) ([]board.List, error) {
		return d.board.ListLists(ctx)
	})
}

func (d *Dispatcher) fetchLabels(ctx context.Context) ([]board.Label, error) {
	return call(ctx, d, "trello", "labels", func(ctx context.Context) ([]board.Label, error) {
		return d.board.Labels(ctx)
	})
}

// resolveCard procura nos cards abertos e, como último recurso, na busca do Trello
func (d *Dispatcher) resolveCard(ctx context.Context, query string) (board.Card, bool, error) {
	cards, err := call(ctx, d, "trello", "list_cards", func(ctx context.Context) ([]board.Card, error) {
		return d.board.ListCards(ctx)
	})
	if err != nil {
		return board.Card{}, false, err
	}

	search := func(ctx context.Context, q string) ([]board.Card, error) {
		return call(ctx, d, "trello", "search", func(ctx context.Context) ([]board.Card, error) {
			return d.board.Search(ctx, q)
		})
	}
	card, strategy, found := fuzzy.Resolve(ctx, d.matcher, query, cards, search)
	if found {
		d.logger.Debug("Card resolvido", "query", query, "entity_id", card.ID, "strategy", string(strategy))
	}
	return card, found, nil
}

func (d *Dispatcher) resolveList(ctx context.Context, name string) (board.List, bool, error) {
	lists, err := d.fetchLists(ctx)
	if err != nil {
		return board.List{}, false, err
	}
	list, _, found := fuzzy.Find(d.matcher, name, lists)
	return list, found, nil
}

func cardNotFound(query string) result {
	return notFound(fmt.Sprintf("Não encontrei o card \"%s\" no quadro.", query))
}

func listNotFound(name string) result {
	return notFound(fmt.Sprintf("Não encontrei a lista \"%s\" no quadro.", name))
}

func (d *Dispatcher) trelloCreate(ctx context.Context, userID string, v intent.TrelloCreate) result {
	if strings.TrimSpace(v.Name) == "" {
		return failed("Qual o nome do card?")
	}

	lists, err := d.fetchLists(ctx)
	if err != nil {
		return d.failure(userID, "trello_create", err)
	}
	if len(lists) == 0 {
		return failed("O quadro não tem nenhuma lista aberta.")
	}
	list := lists[0]
	if v.List != "" {
		found, _, ok := fuzzy.Find(d.matcher, v.List, lists)
		if !ok {
			return listNotFound(v.List)
		}
		list = found
	}

	fields := board.ExtractStructuredFields(v.Description)
	priority := fields.Priority
	if p := board.NormalizePriority(v.Priority); p != "" {
		priority = p
	}
	labelIDs, missing := d.labelIDs(ctx, userID, v.Labels, priority)

	card, err := call(ctx, d, "trello", "create_card", func(ctx context.Context) (board.Card, error) {
		return d.board.CreateCard(ctx, board.CardInput{
			Name:     v.Name,
			Desc:     v.Description,
			ListID:   list.ID,
			Due:      v.Due,
			LabelIDs: labelIDs,
		})
	})
	if err != nil {
		return d.failure(userID, "trello_create", err)
	}

	// pendências da descrição viram checklist; falha aqui não desfaz o card
	if len(fields.Pending) > 0 {
		if err := exec(ctx, d, "trello", "add_checklist", func(ctx context.Context) error {
			return d.board.AddChecklist(ctx, card.ID, "Pendências", fields.Pending)
		}); err != nil {
			d.logger.Warn("Erro ao criar checklist de pendências", "user_id", userID, "entity_id", card.ID, "error", err)
		}
	}

	d.history.Record(ctx, userID, "trello_create", cardRef{ID: card.ID, Name: card.Name}, card.ID)
	d.invalidate(cache.ScopeTrello)

	text := fmt.Sprintf("📌 Card criado: %s\nLista: %s", card.Name, list.Name)
	if !v.Due.IsZero() {
		text += "\nPrazo: " + formatDateTime(v.Due.In(d.loc))
	}
	if fields.Client != "" {
		text += "\nCliente: " + fields.Client
	}
	if len(fields.Pending) > 0 {
		text += "\nChecklist: " + plural(len(fields.Pending), "pendência", "pendências")
	}
	if len(missing) > 0 {
		text += "\n⚠️ Etiquetas não encontradas: " + strings.Join(missing, ", ")
	}
	return done(text)
}

// labelIDs resolve os nomes de etiqueta pedidos; a prioridade extraída da
// descrição acrescenta a etiqueta correspondente quando ela existe no quadro
func (d *Dispatcher) labelIDs(ctx context.Context, userID string, names []string, priority string) ([]string, []string) {
	if len(names) == 0 && priority == "" {
		return nil, nil
	}
	labels, err := d.fetchLabels(ctx)
	if err != nil {
		d.logger.Warn("Erro ao carregar etiquetas", "user_id", userID, "error", err)
		return nil, names
	}

	var ids, missing []string
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, name := range names {
		l, _, ok := fuzzy.Find(d.matcher, name, labels)
		if !ok {
			missing = append(missing, name)
			continue
		}
		add(l.ID)
	}
	for _, name := range priorityLabels[priority] {
		for _, l := range labels {
			if fuzzy.Normalize(l.Name) == fuzzy.Normalize(name) {
				add(l.ID)
			}
		}
	}
	return ids, missing
}

func (d *Dispatcher) trelloList(ctx context.Context, v intent.TrelloList) result {
	lists, err := d.fetchLists(ctx)
	if err != nil {
		return d.failure("", "trello_list", err)
	}
	if v.List != "" {
		list, _, ok := fuzzy.Find(d.matcher, v.List, lists)
		if !ok {
			return listNotFound(v.List)
		}
		lists = []board.List{list}
	}
	if len(lists) == 0 {
		return done("O quadro está vazio.")
	}

	var b strings.Builder
	for i, l := range lists {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "📋 %s (%d)\n", l.Name, len(l.Cards))
		for _, c := range l.Cards {
			b.WriteString(formatCard(c) + "\n")
		}
	}
	return done(strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) trelloMove(ctx context.Context, userID string, v intent.TrelloMove) result {
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure(userID, "trello_move", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}
	lists, err := d.fetchLists(ctx)
	if err != nil {
		return d.failure(userID, "trello_move", err)
	}
	target, _, ok := fuzzy.Find(d.matcher, v.List, lists)
	if !ok {
		return listNotFound(v.List)
	}
	if card.ListID == target.ID {
		return done(fmt.Sprintf("O card \"%s\" já está em %s.", card.Name, target.Name))
	}

	move := cardMove{
		CardID:       card.ID,
		CardName:     card.Name,
		FromListID:   card.ListID,
		FromListName: listName(lists, card.ListID, card.ListName),
		ToListID:     target.ID,
		ToListName:   target.Name,
	}
	if _, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
		return d.board.UpdateCard(ctx, card.ID, board.CardPatch{ListID: &target.ID})
	}); err != nil {
		return d.failure(userID, "trello_move", err)
	}

	d.history.Record(ctx, userID, "trello_move", move, card.ID)
	d.invalidate(cache.ScopeTrello)
	return done(fmt.Sprintf("➡️ Card \"%s\" movido de %s para %s.", card.Name, move.FromListName, target.Name))
}

func listName(lists []board.List, id, fallback string) string {
	for _, l := range lists {
		if l.ID == id {
			return l.Name
		}
	}
	if fallback != "" {
		return fallback
	}
	return "lista anterior"
}

func (d *Dispatcher) trelloUpdate(ctx context.Context, userID string, v intent.TrelloUpdate) result {
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure(userID, "trello_update", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}

	switch v.Action {
	case intent.ActionDue, intent.ActionDescription, intent.ActionLabel, intent.ActionChecklist:
	default:
		return failed("Posso alterar prazo, descrição, etiqueta ou checklist de um card. O que deseja mudar?")
	}

	p := &state.PendingTrelloUpdate{CardID: card.ID, CardName: card.Name, Action: v.Action}
	if strings.TrimSpace(v.Value) == "" {
		if err := d.flows.Await(ctx, userID, state.FlowState{PendingTrelloUpdate: p}); err != nil {
			return d.failure(userID, "trello_update", err)
		}
		return pending(trelloUpdateQuestion(*p))
	}

	res, valid := d.applyTrelloUpdate(ctx, userID, card.ID, card.Name, v.Action, v.Value)
	if !valid {
		// valor ilegível: a próxima mensagem é a resposta corrigida
		if err := d.flows.Await(ctx, userID, state.FlowState{PendingTrelloUpdate: p}); err != nil {
			return d.failure(userID, "trello_update", err)
		}
	}
	return res
}

func trelloUpdateQuestion(p state.PendingTrelloUpdate) string {
	switch p.Action {
	case intent.ActionDue:
		return fmt.Sprintf("Qual o novo prazo para \"%s\"? Ex.: amanhã, 25/03, 25/03 às 18h.", p.CardName)
	case intent.ActionDescription:
		return fmt.Sprintf("Qual a nova descrição para \"%s\"?", p.CardName)
	case intent.ActionLabel:
		return fmt.Sprintf("Qual etiqueta devo adicionar em \"%s\"?", p.CardName)
	}
	return fmt.Sprintf("Quais itens do checklist de \"%s\"? Separe por vírgula ou um por linha.", p.CardName)
}

// applyTrelloUpdate aplica o valor. O bool é falso quando o valor é inválido e
// a pergunta deve ser repetida.
func (d *Dispatcher) applyTrelloUpdate(ctx context.Context, userID, cardID, cardName, action, value string) (result, bool) {
	switch action {
	case intent.ActionDue:
		due, ok := parseDateAnswer(value, d.nowLocal())
		if !ok {
			return pending("Não entendi a data. Use algo como amanhã, 25/03 ou 25/03 às 18h."), false
		}
		if _, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
			return d.board.UpdateCard(ctx, cardID, board.CardPatch{Due: &due})
		}); err != nil {
			return d.failure(userID, "trello_update", err), true
		}
		d.invalidate(cache.ScopeTrello)
		return done(fmt.Sprintf("📅 Prazo de \"%s\" definido para %s.", cardName, formatDateTime(due))), true

	case intent.ActionDescription:
		desc := strings.TrimSpace(value)
		if _, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
			return d.board.UpdateCard(ctx, cardID, board.CardPatch{Desc: &desc})
		}); err != nil {
			return d.failure(userID, "trello_update", err), true
		}
		d.invalidate(cache.ScopeTrello)
		return done(fmt.Sprintf("✏️ Descrição de \"%s\" atualizada.", cardName)), true

	case intent.ActionLabel:
		labels, err := d.fetchLabels(ctx)
		if err != nil {
			return d.failure(userID, "trello_update", err), true
		}
		label, _, ok := fuzzy.Find(d.matcher, value, labels)
		if !ok {
			names := make([]string, 0, len(labels))
			for _, l := range labels {
				names = append(names, l.Name)
			}
			return pending(fmt.Sprintf("Não encontrei a etiqueta \"%s\". Disponíveis: %s.", value, strings.Join(names, ", "))), false
		}
		if err := exec(ctx, d, "trello", "add_label", func(ctx context.Context) error {
			return d.board.AddLabel(ctx, cardID, label.ID)
		}); err != nil {
			return d.failure(userID, "trello_update", err), true
		}
		d.invalidate(cache.ScopeTrello)
		return done(fmt.Sprintf("🏷️ Etiqueta %s adicionada em \"%s\".", label.Name, cardName)), true

	case intent.ActionChecklist:
		items := splitItems(value)
		if len(items) == 0 {
			return pending("Não encontrei itens. Separe por vírgula ou um por linha."), false
		}
		if err := exec(ctx, d, "trello", "add_checklist", func(ctx context.Context) error {
			return d.board.AddChecklist(ctx, cardID, "Checklist", items)
		}); err != nil {
			return d.failure(userID, "trello_update", err), true
		}
		d.invalidate(cache.ScopeTrello)
		return done(fmt.Sprintf("☑️ Checklist com %s adicionado em \"%s\".", plural(len(items), "item", "itens"), cardName)), true
	}
	return failed(clarifyText), true
}

func (d *Dispatcher) trelloArchive(ctx context.Context, userID string, v intent.TrelloArchive) result {
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure(userID, "trello_archive", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}

	closed := true
	if _, err := call(ctx, d, "trello", "update_card", func(ctx context.Context) (board.Card, error) {
		return d.board.UpdateCard(ctx, card.ID, board.CardPatch{Closed: &closed})
	}); err != nil {
		return d.failure(userID, "trello_archive", err)
	}

	d.history.Record(ctx, userID, "trello_archive", cardRef{ID: card.ID, Name: card.Name}, card.ID)
	d.invalidate(cache.ScopeTrello)
	return done("📦 Card arquivado: " + card.Name)
}

func (d *Dispatcher) trelloArchiveList(ctx context.Context, userID string, v intent.TrelloArchiveList) result {
	list, found, err := d.resolveList(ctx, v.List)
	if err != nil {
		return d.failure(userID, "trello_archive_list", err)
	}
	if !found {
		return listNotFound(v.List)
	}
	if len(list.Cards) == 0 {
		return done(fmt.Sprintf("A lista %s já está vazia.", list.Name))
	}

	payload := listArchive{ListID: list.ID, ListName: list.Name}
	items := make([]string, 0, len(list.Cards))
	for _, c := range list.Cards {
		payload.Cards = append(payload.Cards, cardRef{ID: c.ID, Name: c.Name})
		items = append(items, c.Name)
	}

	c, err := d.confirmations.Create(ctx, userID, "trello_archive_list", payload, items)
	if err != nil {
		return d.failure(userID, "trello_archive_list", err)
	}
	metrics.RecordConfirmation(c.ActionType, "created")
	text := fmt.Sprintf("📦 Arquivar %s da lista %s?\n%s",
		plural(len(items), "card", "cards"), list.Name, previewItems(items))
	return pending(text, confirmButtons(c.ID))
}

func (d *Dispatcher) trelloDelete(ctx context.Context, userID string, v intent.TrelloDelete) result {
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure(userID, "trello_delete", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}

	p := &state.PendingTrelloDelete{CardID: card.ID, CardName: card.Name}
	if err := d.flows.Await(ctx, userID, state.FlowState{PendingTrelloDelete: p}); err != nil {
		return d.failure(userID, "trello_delete", err)
	}
	return pending(trelloDeleteQuestion(*p), trelloDeleteButtons())
}

func trelloDeleteQuestion(p state.PendingTrelloDelete) string {
	return fmt.Sprintf("⚠️ Excluir definitivamente o card \"%s\"? Essa ação não pode ser desfeita. Responda sim ou não.", p.CardName)
}

func trelloDeleteButtons() []Button {
	return []Button{
		{Text: "🗑️ Excluir", Data: "td:yes"},
		{Text: "Cancelar", Data: "td:no"},
	}
}

func (d *Dispatcher) trelloComment(ctx context.Context, v intent.TrelloComment) result {
	if strings.TrimSpace(v.Text) == "" {
		return failed("Qual o texto do comentário?")
	}
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure("", "trello_comment", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}

	if err := exec(ctx, d, "trello", "add_comment", func(ctx context.Context) error {
		return d.board.AddComment(ctx, card.ID, v.Text)
	}); err != nil {
		return d.failure("", "trello_comment", err)
	}
	d.invalidate(cache.ScopeTrello)
	return done(fmt.Sprintf("💬 Comentário adicionado em \"%s\".", card.Name))
}

func (d *Dispatcher) trelloSearch(ctx context.Context, v intent.TrelloSearch) result {
	cards, err := call(ctx, d, "trello", "search", func(ctx context.Context) ([]board.Card, error) {
		return d.board.Search(ctx, v.Query)
	})
	if err != nil {
		return d.failure("", "trello_search", err)
	}
	if len(cards) == 0 {
		return notFound(fmt.Sprintf("Nenhum card encontrado para \"%s\".", v.Query))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 %s para \"%s\":\n", plural(len(cards), "card encontrado", "cards encontrados"), v.Query)
	for i, c := range cards {
		if i == maxSearchResults {
			fmt.Fprintf(&b, "… e mais %d", len(cards)-maxSearchResults)
			break
		}
		line := formatCard(c)
		if c.Closed {
			line += " [arquivado]"
		}
		b.WriteString(line + "\n")
	}
	return done(strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) trelloDetails(ctx context.Context, v intent.TrelloDetails) result {
	card, found, err := d.resolveCard(ctx, v.Query)
	if err != nil {
		return d.failure("", "trello_details", err)
	}
	if !found {
		return cardNotFound(v.Query)
	}
	return done(formatCardDetails(card, d.loc))
}

// dueOn filtra os cards com prazo no dia
func dueOn(cards []board.Card, from, to time.Time) []board.Card {
	var out []board.Card
	for _, c := range cards {
		if !c.Due.IsZero() && !c.Due.Before(from) && c.Due.Before(to) {
			out = append(out, c)
		}
	}
	return out
}
