package calendar

import (
	"context"
	"strings"
	"time"
)

// CompletedPrefix marca no título os eventos concluídos
const CompletedPrefix = "✅ "

// Event representa um compromisso da agenda
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Updated     time.Time `json:"updated"`
}

// DisplayName retorna o título sem a marcação de concluído
func (e Event) DisplayName() string {
	return strings.TrimPrefix(e.Summary, CompletedPrefix)
}

func (e Event) LastModified() time.Time { return e.Updated }

// Completed indica se o evento já foi marcado como concluído
func (e Event) Completed() bool {
	return strings.HasPrefix(e.Summary, CompletedPrefix)
}

// Overlaps verifica interseção com [start, end)
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// Slot é um intervalo de tempo livre ou proposto
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// EventInput são os dados para criar um evento
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// EventPatch contém apenas os campos a alterar
type EventPatch struct {
	Summary  *string
	Location *string
	Start    *time.Time
	End      *time.Time
}

// EventStore é o colaborador de agenda
type EventStore interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, in EventInput) (Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Task representa uma tarefa
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Due       time.Time `json:"due,omitempty"`
	Completed bool      `json:"completed"`
	Updated   time.Time `json:"updated"`
}

func (t Task) DisplayName() string     { return t.Title }
func (t Task) LastModified() time.Time { return t.Updated }

// TaskInput são os dados para criar uma tarefa
type TaskInput struct {
	Title string
	Notes string
	Due   time.Time
}

// TaskStore é o colaborador de tarefas
type TaskStore interface {
	ListTasks(ctx context.Context, includeCompleted bool) ([]Task, error)
	CreateTask(ctx context.Context, in TaskInput) (Task, error)
	SetTaskCompleted(ctx context.Context, id string, completed bool) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// DayBounds retorna [00:00, 00:00 do dia seguinte) no fuso de t
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
