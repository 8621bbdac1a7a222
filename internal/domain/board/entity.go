package board

import (
	"context"
	"time"
)

// Label é uma etiqueta do quadro
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func (l Label) DisplayName() string     { return l.Name }
func (l Label) LastModified() time.Time { return time.Time{} }

// Card é um cartão do quadro
type Card struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Desc         string    `json:"desc,omitempty"`
	ListID       string    `json:"list_id"`
	ListName     string    `json:"list_name,omitempty"`
	Labels       []Label   `json:"labels,omitempty"`
	Due          time.Time `json:"due,omitempty"`
	Closed       bool      `json:"closed"`
	LastActivity time.Time `json:"last_activity"`
	URL          string    `json:"url,omitempty"`
}

func (c Card) DisplayName() string     { return c.Name }
func (c Card) LastModified() time.Time { return c.LastActivity }

// List é uma coluna do quadro com seus cards
type List struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
	Cards  []Card `json:"cards,omitempty"`
}

func (l List) DisplayName() string     { return l.Name }
func (l List) LastModified() time.Time { return time.Time{} }

// CardInput são os dados para criar um card
type CardInput struct {
	Name     string
	Desc     string
	ListID   string
	Due      time.Time
	LabelIDs []string
}

// CardPatch contém apenas os campos a alterar
type CardPatch struct {
	Name   *string
	Desc   *string
	ListID *string
	Due    *time.Time
	Closed *bool
}

// Board é o colaborador de quadro (cards, listas, etiquetas)
type Board interface {
	ListCards(ctx context.Context) ([]Card, error)
	ListLists(ctx context.Context) ([]List, error)
	Labels(ctx context.Context) ([]Label, error)
	CreateCard(ctx context.Context, in CardInput) (Card, error)
	UpdateCard(ctx context.Context, id string, patch CardPatch) (Card, error)
	DeleteCard(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]Card, error)
	AddLabel(ctx context.Context, cardID, labelID string) error
	AddChecklist(ctx context.Context, cardID, name string, items []string) error
	AddComment(ctx context.Context, cardID, text string) error
}
