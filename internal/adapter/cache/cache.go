package cache

import (
	"sync"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

// Scope agrupa as leituras invalidadas juntas
type Scope string

const (
	ScopeEvents Scope = "events" // agenda e tarefas
	ScopeTrello Scope = "trello"
	ScopeAll    Scope = "all"
)

// Broadcaster avisa outras instâncias sobre uma invalidação
type Broadcaster interface {
	Broadcast(scope Scope) error
}

type entry struct {
	scope   Scope
	value   any
	expires time.Time
}

// Cache guarda leituras por um TTL curto. Escritas nunca passam por aqui:
// quem altera algo chama Invalidate.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]entry
	ttl         time.Duration
	now         func() time.Time
	broadcaster Broadcaster
	logger      logger.Logger
}

func New(ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{entries: make(map[string]entry), ttl: ttl, now: time.Now, logger: log}
}

// WithBroadcaster faz Invalidate também avisar outras instâncias
func (c *Cache) WithBroadcaster(b Broadcaster) *Cache {
	c.broadcaster = b
	return c
}

// WithClock troca o relógio, usado em testes
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Invalidate limpa o escopo localmente e avisa as demais instâncias.
// O aviso remoto é melhor esforço: falhas só vão para o log.
func (c *Cache) Invalidate(scope Scope) {
	c.InvalidateLocal(scope)
	if c.broadcaster == nil {
		return
	}
	if err := c.broadcaster.Broadcast(scope); err != nil {
		c.logger.Warn("Erro ao propagar invalidação de cache", "scope", string(scope), "error", err)
	}
}

// InvalidateLocal limpa o escopo sem propagar
func (c *Cache) InvalidateLocal(scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if scope == ScopeAll || e.scope == scope {
			delete(c.entries, k)
		}
	}
	c.logger.Debug("Cache invalidado", "scope", string(scope))
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(scope Scope, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{scope: scope, value: value, expires: c.now().Add(c.ttl)}
}

// load devolve o valor em cache ou busca e guarda. Erros nunca são guardados.
func load[T any](c *Cache, scope Scope, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.set(scope, key, v)
	return v, nil
}
