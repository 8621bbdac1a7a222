package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"
	RoutingKey   = "cache.invalidate"
)

// invalidation é a mensagem trocada entre instâncias
type invalidation struct {
	Scope  Scope  `json:"scope"`
	Origin string `json:"origin"`
}

// AMQPBroadcaster publica e consome invalidações no exchange topic "events"
type AMQPBroadcaster struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	origin  string
	logger  logger.Logger
}

func NewAMQPBroadcaster(url string, log logger.Logger) (*AMQPBroadcaster, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("erro ao abrir canal: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("erro ao declarar exchange: %w", err)
	}

	return &AMQPBroadcaster{conn: conn, channel: ch, origin: uuid.New().String(), logger: log}, nil
}

func (b *AMQPBroadcaster) Close() {
	if b.channel != nil {
		_ = b.channel.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

func (b *AMQPBroadcaster) Broadcast(scope Scope) error {
	body, err := json.Marshal(invalidation{Scope: scope, Origin: b.origin})
	if err != nil {
		return err
	}
	return b.channel.Publish(ExchangeName, RoutingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Listen aplica no cache local as invalidações vindas de outras instâncias.
// Bloqueia até o contexto terminar ou o canal fechar.
func (b *AMQPBroadcaster) Listen(ctx context.Context, c *Cache) error {
	// fila exclusiva por instância: cada processo recebe todas as invalidações
	q, err := b.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("erro ao declarar fila: %w", err)
	}
	if err := b.channel.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("erro ao vincular fila: %w", err)
	}

	deliveries, err := b.channel.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("erro ao consumir fila: %w", err)
	}

	b.logger.Info("Escutando invalidações de cache", "queue", q.Name, "routing_key", RoutingKey)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			b.handle(msg.Body, c)
		}
	}
}

func (b *AMQPBroadcaster) handle(body []byte, c *Cache) {
	var inv invalidation
	if err := json.Unmarshal(body, &inv); err != nil {
		b.logger.Warn("Mensagem de invalidação inválida", "error", err)
		return
	}
	if inv.Origin == b.origin {
		return
	}
	c.InvalidateLocal(inv.Scope)
}
