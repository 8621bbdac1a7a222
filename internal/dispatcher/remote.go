package dispatcher

import (
	"context"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/metrics"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/retry"
)

// call executa uma chamada remota com retry, métricas e log de cada nova tentativa
func call[T any](ctx context.Context, d *Dispatcher, collaborator, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	policy := d.retry
	policy.OnRetry = func(attempt int, kind string, err error) {
		metrics.RecordRetry(collaborator, op)
		d.logger.Warn("Repetindo chamada remota",
			"collaborator", collaborator,
			"op", op,
			"attempt", attempt,
			"kind", kind,
			"error", err)
	}

	start := time.Now()
	v, err := retry.DoValue(ctx, policy, fn)
	metrics.RecordRemoteCall(collaborator, op, err, time.Since(start))
	return v, err
}

// exec é call para operações sem retorno
func exec(ctx context.Context, d *Dispatcher, collaborator, op string, fn func(ctx context.Context) error) error {
	_, err := call(ctx, d, collaborator, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
