package gemini

import (
	"fmt"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
)

const systemPrompt = `Você é um assistente pessoal de agenda que fala português do Brasil.
Transforme a mensagem do usuário em JSON. Responda SOMENTE com JSON, sem texto extra.
Se a mensagem tiver mais de um pedido, responda com um array, um objeto por pedido, na ordem em que aparecem.

Tipos aceitos e seus campos:
- create_event: summary, start, end, location, description
- list_events: target_date ou period (today, tomorrow, week)
- update_event: query, target_date, summary, start, end, location, field (title, location, time) quando o novo valor não foi dito
- delete_event: query, target_date
- complete_event: query, target_date
- complete_all_events: target_date
- create_task: title, due, notes
- list_tasks
- complete_task: query
- delete_task: query
- trello_create: name, list, description, due, labels (array), priority (alta, media ou baixa)
- trello_list: list
- trello_move: query, list
- trello_update: query, action (due, description, label, checklist), value
- trello_archive: query
- trello_archive_list: list
- trello_delete: query
- trello_comment: query, text
- trello_search: query
- trello_details: query
- store_memory: content, category
- query_memory: query
- list_memory
- update_memory: query, content
- delete_memory: query
- undo
- day_summary: target_date
- chat: message (use para conversa sem ação)

Datas em ISO 8601. Use "2006-01-02T15:04" para horários e "2006-01-02" para dia inteiro.
Nunca invente o fim de um evento: omita end se o usuário não disser.`

// buildPrompt monta o contexto do pedido: instante atual, fuso e conversa recente
func buildPrompt(text string, now time.Time, history []chat.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agora: %s (%s, %s)\n", now.Format("2006-01-02T15:04"), weekday(now), now.Location())

	if len(history) > 0 {
		b.WriteString("\nConversa recente:\n")
		// o histórico vem do mais novo para o mais antigo
		for i := len(history) - 1; i >= 0; i-- {
			m := history[i]
			role := "Usuário"
			if m.Role == chat.RoleAssistant {
				role = "Assistente"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nMensagem: %s\n", text)
	return b.String()
}

var weekdays = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

func weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}
