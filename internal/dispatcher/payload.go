package dispatcher

import "time"

// Dados guardados em confirmações e no histórico de ações. Cada um carrega o
// suficiente para executar a ação depois e para montar a mensagem de desfazer.

type eventRef struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
}

type taskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cardRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cardMove struct {
	CardID       string `json:"card_id"`
	CardName     string `json:"card_name"`
	FromListID   string `json:"from_list_id"`
	FromListName string `json:"from_list_name"`
	ToListID     string `json:"to_list_id"`
	ToListName   string `json:"to_list_name"`
}

type listArchive struct {
	ListID   string    `json:"list_id"`
	ListName string    `json:"list_name"`
	Cards    []cardRef `json:"cards"`
}

type dayEvents struct {
	Date   time.Time  `json:"date"`
	Events []eventRef `json:"events"`
}

type memoryRef struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
