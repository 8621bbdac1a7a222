package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/memory"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/circuitbreaker"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/retry"
	"google.golang.org/api/googleapi"
)

const (
	helpText = "Olá! Posso cuidar da sua agenda, tarefas, cards do Trello e anotações.\n\n" +
		"Exemplos:\n" +
		"• Reunião amanhã às 14h\n" +
		"• O que tenho hoje?\n" +
		"• Criar tarefa pagar boleto sexta\n" +
		"• Mover card 03 para Parado\n" +
		"• Lembre que a senha do wifi é 1234\n\n" +
		"Use /desfazer para reverter a última ação."
	clarifyText      = "Desculpe, não consegui entender. Pode reformular?"
	staleText        = "Essa confirmação expirou ou já foi processada. Tente novamente."
	genericErrorText = "Ops, algo deu errado ao processar seu pedido. Tente novamente em instantes."
	cancelledText    = "Ok, cancelado."
	nothingToUndo    = "Não há nenhuma ação para desfazer."

	// maxPreview limita os itens listados numa confirmação
	maxPreview = 10
)

var weekdays = [...]string{"domingo", "segunda", "terça", "quarta", "quinta", "sexta", "sábado"}

// userFacingError traduz o erro para uma mensagem curta, sem detalhes internos
func userFacingError(err error) string {
	switch {
	case err == nil:
		return genericErrorText
	case errors.Is(err, state.ErrStaleConfirmation):
		return staleText
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "O assistente está instável no momento. Tente de novo em alguns segundos."
	case errors.Is(err, memory.ErrNotFound):
		return "Não encontrei essa anotação. Ela pode ter sido apagada."
	case errors.Is(err, context.DeadlineExceeded):
		return "O serviço demorou demais para responder. Tente novamente."
	}

	_, kind := retry.Classify(err)
	switch kind {
	case "rate_limited":
		return "Muitas requisições em pouco tempo. Aguarde um instante e tente de novo."
	case "server_error", "network_error", "network_timeout", "timeout":
		return "O serviço está indisponível no momento. Tente novamente em instantes."
	case "client_error":
		if code, ok := statusCode(err); ok {
			switch code {
			case 401, 403:
				return "Não tenho permissão para acessar esse serviço. Verifique as credenciais."
			case 404:
				return "Não encontrei esse item. Ele pode ter sido removido."
			}
		}
		return "O serviço recusou o pedido. Confira os dados e tente novamente."
	}
	return genericErrorText
}

func statusCode(err error) (int, bool) {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	var sc retry.StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// intentLabel é o nome curto da intenção usado para apontar falhas num lote
func intentLabel(it intent.Intent) string {
	switch v := it.(type) {
	case intent.CreateEvent:
		return "criar evento \"" + v.Summary + "\""
	case intent.ListEvents:
		return "listar eventos"
	case intent.UpdateEvent:
		return "alterar evento \"" + v.Query + "\""
	case intent.DeleteEvent:
		return "remover evento \"" + v.Query + "\""
	case intent.CompleteEvent:
		return "concluir evento \"" + v.Query + "\""
	case intent.CompleteAllEvents:
		return "concluir eventos do dia"
	case intent.CreateTask:
		return "criar tarefa \"" + v.Title + "\""
	case intent.ListTasks:
		return "listar tarefas"
	case intent.CompleteTask:
		return "concluir tarefa \"" + v.Query + "\""
	case intent.DeleteTask:
		return "remover tarefa \"" + v.Query + "\""
	case intent.TrelloCreate:
		return "criar card \"" + v.Name + "\""
	case intent.TrelloMove:
		return "mover card \"" + v.Query + "\""
	case intent.TrelloUpdate:
		return "atualizar card \"" + v.Query + "\""
	case intent.TrelloArchive:
		return "arquivar card \"" + v.Query + "\""
	case intent.TrelloDelete:
		return "excluir card \"" + v.Query + "\""
	case intent.TrelloComment:
		return "comentar no card \"" + v.Query + "\""
	case intent.StoreMemory:
		return "guardar anotação"
	case intent.UpdateMemory:
		return "atualizar anotação"
	case intent.DeleteMemory:
		return "apagar anotação"
	}
	return string(it.Kind())
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%s, %s", weekdays[t.Weekday()], t.Format("02/01"))
}

func formatClock(t time.Time) string {
	return t.Format("15:04")
}

func formatDateTime(t time.Time) string {
	return formatDate(t) + " às " + formatClock(t)
}

func formatSlot(s calendar.Slot) string {
	return fmt.Sprintf("%s, %s–%s", formatDate(s.Start), formatClock(s.Start), formatClock(s.End))
}

// formatEventLine é a linha de um evento numa listagem
func formatEventLine(ev calendar.Event) string {
	when := "dia inteiro"
	if !ev.AllDay {
		when = formatClock(ev.Start) + "–" + formatClock(ev.End)
	}
	line := fmt.Sprintf("• %s %s", when, ev.Summary)
	if ev.Location != "" {
		line += " (📍 " + ev.Location + ")"
	}
	return line
}

func formatWarnings(ws []conflict.Warning) string {
	if len(ws) == 0 {
		return ""
	}
	lines := make([]string, 0, len(ws))
	for _, w := range ws {
		lines = append(lines, "⚠️ "+w.Message)
	}
	return "\n" + strings.Join(lines, "\n")
}

func formatCard(c board.Card) string {
	line := "• " + c.Name
	if !c.Due.IsZero() {
		line += " (prazo " + c.Due.Format("02/01") + ")"
	}
	return line
}

func formatCardDetails(c board.Card, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 %s\n", c.Name)
	if c.ListName != "" {
		fmt.Fprintf(&b, "Lista: %s\n", c.ListName)
	}
	if !c.Due.IsZero() {
		fmt.Fprintf(&b, "Prazo: %s\n", formatDateTime(c.Due.In(loc)))
	}
	if len(c.Labels) > 0 {
		names := make([]string, 0, len(c.Labels))
		for _, l := range c.Labels {
			names = append(names, l.Name)
		}
		fmt.Fprintf(&b, "Etiquetas: %s\n", strings.Join(names, ", "))
	}

	fields := board.ExtractStructuredFields(c.Desc)
	if fields.Client != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", fields.Client)
	}
	if fields.CaseType != "" {
		fmt.Fprintf(&b, "Tipo: %s\n", fields.CaseType)
	}
	if fields.Priority != "" {
		fmt.Fprintf(&b, "Prioridade: %s\n", fields.Priority)
	}
	if len(fields.Pending) > 0 {
		b.WriteString("Pendências:\n")
		for _, p := range fields.Pending {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}
	if fields.Empty() && c.Desc != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Desc)
	}
	if c.URL != "" {
		b.WriteString(c.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// previewItems limita a lista exibida numa confirmação
func previewItems(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i == maxPreview {
			fmt.Fprintf(&b, "… e mais %d", len(items)-maxPreview)
			break
		}
		fmt.Fprintf(&b, "• %s\n", it)
	}
	return strings.TrimRight(b.String(), "\n")
}

func confirmButtons(id string) []Button {
	return []Button{
		{Text: "✅ Confirmar", Data: "cf:" + id + ":yes"},
		{Text: "❌ Cancelar", Data: "cf:" + id + ":no"},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
