package chat

import (
	"context"
	"time"
)

// Papéis das mensagens no histórico
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message representa uma mensagem no histórico da conversa
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository é o log de conversa consultado como contexto pelo classificador
type Repository interface {
	// SaveMessage salva uma nova mensagem no histórico
	SaveMessage(ctx context.Context, message *Message) error

	// GetUserHistory retorna as mensagens mais recentes primeiro
	GetUserHistory(ctx context.Context, userID string, limit, offset int) ([]Message, error)
}
