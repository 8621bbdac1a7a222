package retry

import (
	"context"
	"time"
)

// Policy define backoff exponencial limitado
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep pode ser trocado em testes
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry é chamado antes de cada nova tentativa
	OnRetry func(attempt int, kind string, err error)
}

// DefaultPolicy: 3 tentativas, 500ms de base, teto de 8s
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Delay retorna a espera antes da tentativa attempt (a primeira repetição é attempt=1)
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do executa fn até ter sucesso, esgotar as tentativas ou receber um erro não transitório
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
				return err
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		retryable, kind := Classify(err)
		if !retryable || attempt == attempts-1 {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, kind, err)
		}
	}
	return err
}

// DoValue é Do para funções que retornam valor
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
