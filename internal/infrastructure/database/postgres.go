package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabaseURL indica que o log de conversa está desligado
var ErrNoDatabaseURL = errors.New("DATABASE_URL não configurada")

// NewPostgresDB cria o pool de conexões com o PostgreSQL
func NewPostgresDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, ErrNoDatabaseURL
	}

	// Configurar pool de conexões
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("erro ao analisar configuração do pool: %w", err)
	}

	// Ajustar configurações do pool
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar pool de conexões: %w", err)
	}

	// Testar conexão
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("erro ao verificar conexão com o banco de dados: %w", err)
	}

	return pool, nil
}
