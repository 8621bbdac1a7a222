package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
)

// ChatRepository grava o log de conversa na tabela chat_history
type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) chat.Repository {
	return &ChatRepository{db: db}
}

const insertMessage = `INSERT INTO chat_history (id, user_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`

func (r *ChatRepository) SaveMessage(ctx context.Context, message *chat.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	if _, err := r.db.Exec(ctx, insertMessage,
		message.ID, message.UserID, message.Role, message.Content, message.Timestamp,
	); err != nil {
		return fmt.Errorf("erro ao salvar mensagem do usuário %s: %w", message.UserID, err)
	}
	return nil
}

const selectHistory = `
	SELECT id, user_id, role, content, created_at
	FROM chat_history
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

func (r *ChatRepository) GetUserHistory(ctx context.Context, userID string, limit, offset int) ([]chat.Message, error) {
	rows, err := r.db.Query(ctx, selectHistory, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar histórico: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var m chat.Message
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Timestamp)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao ler histórico: %w", err)
	}
	return messages, nil
}
