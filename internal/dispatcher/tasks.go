package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/intent"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
)

func (d *Dispatcher) createTask(ctx context.Context, userID string, v intent.CreateTask) result {
	if strings.TrimSpace(v.Title) == "" {
		return failed("Qual o nome da tarefa?")
	}

	task, err := call(ctx, d, "tasks", "create_task", func(ctx context.Context) (calendar.Task, error) {
		return d.tasks.CreateTask(ctx, calendar.TaskInput{Title: v.Title, Notes: v.Notes, Due: v.Due})
	})
	if err != nil {
		return d.failure(userID, "create_task", err)
	}

	d.history.Record(ctx, userID, "create_task", taskRef{ID: task.ID, Title: task.Title}, task.ID)
	d.invalidate(cache.ScopeEvents)

	text := "📝 Tarefa criada: " + task.Title
	if !v.Due.IsZero() {
		text += "\n📅 Prazo: " + formatDate(v.Due.In(d.loc))
	}
	return done(text)
}

func (d *Dispatcher) fetchTasks(ctx context.Context, includeCompleted bool) ([]calendar.Task, error) {
	return call(ctx, d, "tasks", "list_tasks", func(ctx context.Context) ([]calendar.Task, error) {
		return d.tasks.ListTasks(ctx, includeCompleted)
	})
}

func (d *Dispatcher) listTasks(ctx context.Context) result {
	tasks, err := d.fetchTasks(ctx, false)
	if err != nil {
		return d.failure("", "list_tasks", err)
	}
	if len(tasks) == 0 {
		return done("📝 Nenhuma tarefa pendente. 🎉")
	}

	// com prazo primeiro, em ordem de prazo
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Due, tasks[j].Due
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.Before(b)
	})

	var b strings.Builder
	b.WriteString("📝 Tarefas pendentes:\n")
	for _, t := range tasks {
		b.WriteString(d.taskLine(t) + "\n")
	}
	return done(strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) taskLine(t calendar.Task) string {
	line := "• " + t.Title
	if !t.Due.IsZero() {
		line += " (até " + formatDate(t.Due.In(d.loc)) + ")"
	}
	return line
}

func (d *Dispatcher) completeTask(ctx context.Context, userID string, v intent.CompleteTask) result {
	tasks, err := d.fetchTasks(ctx, false)
	if err != nil {
		return d.failure(userID, "complete_task", err)
	}
	task, _, found := fuzzy.Find(d.matcher, v.Query, tasks)
	if !found {
		return notFound(fmt.Sprintf("Não encontrei a tarefa \"%s\" entre as pendentes.", v.Query))
	}

	if _, err := call(ctx, d, "tasks", "complete_task", func(ctx context.Context) (calendar.Task, error) {
		return d.tasks.SetTaskCompleted(ctx, task.ID, true)
	}); err != nil {
		return d.failure(userID, "complete_task", err)
	}

	d.history.Record(ctx, userID, "complete_task", taskRef{ID: task.ID, Title: task.Title}, task.ID)
	d.invalidate(cache.ScopeEvents)
	return done("✅ Tarefa concluída: " + task.Title)
}

func (d *Dispatcher) deleteTask(ctx context.Context, v intent.DeleteTask) result {
	tasks, err := d.fetchTasks(ctx, true)
	if err != nil {
		return d.failure("", "delete_task", err)
	}
	task, _, found := fuzzy.Find(d.matcher, v.Query, tasks)
	if !found {
		return notFound(fmt.Sprintf("Não encontrei a tarefa \"%s\".", v.Query))
	}

	if err := exec(ctx, d, "tasks", "delete_task", func(ctx context.Context) error {
		return d.tasks.DeleteTask(ctx, task.ID)
	}); err != nil {
		return d.failure("", "delete_task", err)
	}
	d.invalidate(cache.ScopeEvents)
	return done("🗑️ Tarefa removida: " + task.Title)
}
