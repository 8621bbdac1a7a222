package google

import (
	"context"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	gtasks "google.golang.org/api/tasks/v1"
)

const (
	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Tasks implementa calendar.TaskStore sobre a Google Tasks API
type Tasks struct {
	svc    *gtasks.Service
	listID string
	logger logger.Logger
}

func NewTasks(svc *gtasks.Service, listID string, log logger.Logger) *Tasks {
	if listID == "" {
		listID = "@default"
	}
	return &Tasks{svc: svc, listID: listID, logger: log}
}

func (t *Tasks) ListTasks(ctx context.Context, includeCompleted bool) ([]calendar.Task, error) {
	var out []calendar.Task
	call := t.svc.Tasks.List(t.listID).
		ShowCompleted(includeCompleted).
		ShowHidden(includeCompleted).
		MaxResults(100).
		Context(ctx)

	err := call.Pages(ctx, func(page *gtasks.Tasks) error {
		for _, item := range page.Items {
			if item.Deleted {
				continue
			}
			out = append(out, taskToDomain(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tasks) CreateTask(ctx context.Context, in calendar.TaskInput) (calendar.Task, error) {
	item := &gtasks.Task{Title: in.Title, Notes: in.Notes}
	if !in.Due.IsZero() {
		// a API só guarda a data; a hora é descartada
		item.Due = in.Due.UTC().Format(time.RFC3339)
	}
	created, err := t.svc.Tasks.Insert(t.listID, item).Context(ctx).Do()
	if err != nil {
		return calendar.Task{}, err
	}
	return taskToDomain(created), nil
}

// SetTaskCompleted marca ou desmarca a tarefa; desmarcar também limpa a data de conclusão
func (t *Tasks) SetTaskCompleted(ctx context.Context, id string, completed bool) (calendar.Task, error) {
	item := &gtasks.Task{Status: statusNeedsAction}
	if completed {
		item.Status = statusCompleted
	} else {
		item.NullFields = []string{"Completed"}
	}
	updated, err := t.svc.Tasks.Patch(t.listID, id, item).Context(ctx).Do()
	if err != nil {
		return calendar.Task{}, err
	}
	return taskToDomain(updated), nil
}

func (t *Tasks) DeleteTask(ctx context.Context, id string) error {
	return t.svc.Tasks.Delete(t.listID, id).Context(ctx).Do()
}

func taskToDomain(item *gtasks.Task) calendar.Task {
	task := calendar.Task{
		ID:        item.Id,
		Title:     item.Title,
		Notes:     item.Notes,
		Completed: item.Status == statusCompleted,
	}
	if d, err := time.Parse(time.RFC3339, item.Due); err == nil {
		task.Due = d
	}
	if u, err := time.Parse(time.RFC3339, item.Updated); err == nil {
		task.Updated = u
	}
	return task
}
