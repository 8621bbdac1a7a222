package memory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound é retornado quando a entrada não existe
var ErrNotFound = errors.New("memória não encontrada")

// Entry é uma anotação livre guardada pelo usuário
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Entry) DisplayName() string     { return e.Content }
func (e Entry) LastModified() time.Time { return e.UpdatedAt }

// Store é o colaborador de memória chave/valor
type Store interface {
	Store(ctx context.Context, userID, content, category string) (Entry, error)
	Query(ctx context.Context, userID, query string) ([]Entry, error)
	List(ctx context.Context, userID string) ([]Entry, error)
	Update(ctx context.Context, userID, id, content string) (Entry, error)
	Delete(ctx context.Context, userID, id string) error
}
