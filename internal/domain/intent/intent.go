package intent

import "time"

// Kind é a etiqueta de despacho de uma intenção
type Kind string

const (
	KindCreateEvent       Kind = "create_event"
	KindListEvents        Kind = "list_events"
	KindUpdateEvent       Kind = "update_event"
	KindDeleteEvent       Kind = "delete_event"
	KindCompleteEvent     Kind = "complete_event"
	KindCompleteAllEvents Kind = "complete_all_events"

	KindCreateTask   Kind = "create_task"
	KindListTasks    Kind = "list_tasks"
	KindCompleteTask Kind = "complete_task"
	KindDeleteTask   Kind = "delete_task"

	KindTrelloCreate      Kind = "trello_create"
	KindTrelloList        Kind = "trello_list"
	KindTrelloMove        Kind = "trello_move"
	KindTrelloUpdate      Kind = "trello_update"
	KindTrelloArchive     Kind = "trello_archive"
	KindTrelloArchiveList Kind = "trello_archive_list"
	KindTrelloDelete      Kind = "trello_delete"
	KindTrelloComment     Kind = "trello_comment"
	KindTrelloSearch      Kind = "trello_search"
	KindTrelloDetails     Kind = "trello_details"

	KindStoreMemory  Kind = "store_memory"
	KindQueryMemory  Kind = "query_memory"
	KindListMemory   Kind = "list_memory"
	KindUpdateMemory Kind = "update_memory"
	KindDeleteMemory Kind = "delete_memory"

	KindUndo       Kind = "undo"
	KindDaySummary Kind = "day_summary"
	KindChat       Kind = "chat"
	KindUnknown    Kind = "unknown"
	KindInvalid    Kind = "invalid"
)

// Intent é uma ação pedida pelo usuário. O conjunto de implementações é fechado.
type Intent interface {
	Kind() Kind
	sealed()
}

// Campos de atualização de evento aguardando valor
const (
	FieldTitle    = "title"
	FieldLocation = "location"
	FieldTime     = "time"
)

// Ações de atualização de card
const (
	ActionDue         = "due"
	ActionDescription = "description"
	ActionLabel       = "label"
	ActionChecklist   = "checklist"
)

type CreateEvent struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time // zero: usar a duração padrão
	AllDay      bool
}

type ListEvents struct {
	Date   time.Time // zero: usar Period ou hoje
	Period string    // today, tomorrow, week
}

type UpdateEvent struct {
	Query    string
	Date     time.Time
	Field    string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
}

// HasValue indica se a intenção já traz o novo valor
func (u UpdateEvent) HasValue() bool {
	return u.Summary != "" || u.Location != "" || !u.Start.IsZero()
}

type DeleteEvent struct {
	Query string
	Date  time.Time
}

type CompleteEvent struct {
	Query string
	Date  time.Time
}

type CompleteAllEvents struct {
	Date time.Time
}

type CreateTask struct {
	Title string
	Notes string
	Due   time.Time
}

type ListTasks struct{}

type CompleteTask struct {
	Query string
}

type DeleteTask struct {
	Query string
}

type TrelloCreate struct {
	Name        string
	List        string
	Description string
	Due         time.Time
	Labels      []string
	Priority    string // como veio do classificador; vazio usa a da descrição
}

type TrelloList struct {
	List string
}

type TrelloMove struct {
	Query string
	List  string
}

type TrelloUpdate struct {
	Query  string
	Action string
	Value  string
}

type TrelloArchive struct {
	Query string
}

type TrelloArchiveList struct {
	List string
}

type TrelloDelete struct {
	Query string
}

type TrelloComment struct {
	Query string
	Text  string
}

type TrelloSearch struct {
	Query string
}

type TrelloDetails struct {
	Query string
}

type StoreMemory struct {
	Content  string
	Category string
}

type QueryMemory struct {
	Query string
}

type ListMemory struct{}

type UpdateMemory struct {
	Query   string
	Content string
}

type DeleteMemory struct {
	Query string
}

type Undo struct{}

type DaySummary struct {
	Date time.Time
}

// Chat é a resposta conversacional do classificador
type Chat struct {
	Message string
}

// Unknown carrega uma etiqueta não reconhecida
type Unknown struct {
	Type    string
	Message string
}

// Invalid representa um registro que não pôde ser decodificado
type Invalid struct {
	Type   string
	Reason string
}

func (CreateEvent) Kind() Kind       { return KindCreateEvent }
func (ListEvents) Kind() Kind        { return KindListEvents }
func (UpdateEvent) Kind() Kind       { return KindUpdateEvent }
func (DeleteEvent) Kind() Kind       { return KindDeleteEvent }
func (CompleteEvent) Kind() Kind     { return KindCompleteEvent }
func (CompleteAllEvents) Kind() Kind { return KindCompleteAllEvents }
func (CreateTask) Kind() Kind        { return KindCreateTask }
func (ListTasks) Kind() Kind         { return KindListTasks }
func (CompleteTask) Kind() Kind      { return KindCompleteTask }
func (DeleteTask) Kind() Kind        { return KindDeleteTask }
func (TrelloCreate) Kind() Kind      { return KindTrelloCreate }
func (TrelloList) Kind() Kind        { return KindTrelloList }
func (TrelloMove) Kind() Kind        { return KindTrelloMove }
func (TrelloUpdate) Kind() Kind      { return KindTrelloUpdate }
func (TrelloArchive) Kind() Kind     { return KindTrelloArchive }
func (TrelloArchiveList) Kind() Kind { return KindTrelloArchiveList }
func (TrelloDelete) Kind() Kind      { return KindTrelloDelete }
func (TrelloComment) Kind() Kind     { return KindTrelloComment }
func (TrelloSearch) Kind() Kind      { return KindTrelloSearch }
func (TrelloDetails) Kind() Kind     { return KindTrelloDetails }
func (StoreMemory) Kind() Kind       { return KindStoreMemory }
func (QueryMemory) Kind() Kind       { return KindQueryMemory }
func (ListMemory) Kind() Kind        { return KindListMemory }
func (UpdateMemory) Kind() Kind      { return KindUpdateMemory }
func (DeleteMemory) Kind() Kind      { return KindDeleteMemory }
func (Undo) Kind() Kind              { return KindUndo }
func (DaySummary) Kind() Kind        { return KindDaySummary }
func (Chat) Kind() Kind              { return KindChat }
func (Unknown) Kind() Kind           { return KindUnknown }
func (Invalid) Kind() Kind           { return KindInvalid }

func (CreateEvent) sealed()       {}
func (ListEvents) sealed()        {}
func (UpdateEvent) sealed()       {}
func (DeleteEvent) sealed()       {}
func (CompleteEvent) sealed()     {}
func (CompleteAllEvents) sealed() {}
func (CreateTask) sealed()        {}
func (ListTasks) sealed()         {}
func (CompleteTask) sealed()      {}
func (DeleteTask) sealed()        {}
func (TrelloCreate) sealed()      {}
func (TrelloList) sealed()        {}
func (TrelloMove) sealed()        {}
func (TrelloUpdate) sealed()      {}
func (TrelloArchive) sealed()     {}
func (TrelloArchiveList) sealed() {}
func (TrelloDelete) sealed()      {}
func (TrelloComment) sealed()     {}
func (TrelloSearch) sealed()      {}
func (TrelloDetails) sealed()     {}
func (StoreMemory) sealed()       {}
func (QueryMemory) sealed()       {}
func (ListMemory) sealed()        {}
func (UpdateMemory) sealed()      {}
func (DeleteMemory) sealed()      {}
func (Undo) sealed()              {}
func (DaySummary) sealed()        {}
func (Chat) sealed()              {}
func (Unknown) sealed()           {}
func (Invalid) sealed()           {}
