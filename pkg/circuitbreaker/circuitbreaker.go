package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen é retornado quando o disjuntor rejeita a chamada
var ErrOpen = errors.New("circuit breaker aberto")

// State representa o estado do disjuntor
type State int

const (
	StateClosed   State = iota // chamadas passam normalmente
	StateOpen                  // chamadas rejeitadas até o timeout
	StateHalfOpen              // poucas chamadas de teste
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config do disjuntor
type Config struct {
	// Falhas consecutivas para abrir
	FailureThreshold int
	// Sucessos em meio-aberto para fechar
	SuccessThreshold int
	// Tempo aberto antes de tentar meio-aberto
	Timeout time.Duration
	// Chamadas simultâneas permitidas em meio-aberto
	HalfOpenMaxRequests int
}

// DefaultConfig retorna a configuração padrão
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreaker protege um colaborador remoto contra falhas em cascata
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCount int
	openedAt      time.Time
}

// New cria um disjuntor fechado
func New(config Config) *CircuitBreaker {
	return &CircuitBreaker{config: config, now: time.Now}
}

// WithClock troca o relógio (testes)
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// Execute roda fn se o disjuntor permitir e registra o resultado
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		cb.successes = 0
	}

	switch cb.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			return ErrOpen
		}
		cb.halfOpenCount++
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			cb.halfOpenCount = 0
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		cb.halfOpenCount--
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
		}
	}
}

// State retorna o estado atual
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset fecha o disjuntor
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCount = 0
}
