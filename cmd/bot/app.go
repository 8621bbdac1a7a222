package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/controller"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/route"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/cache"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/gemini"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/google"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/memorystore"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/repository"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/telegram"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/trello"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/conflict"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/dispatcher"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/chat"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/infrastructure/database"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/auth"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/circuitbreaker"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/config"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/fuzzy"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/retry"
)

// App representa a aplicação e suas dependências
type App struct {
	cfg        *config.Config
	logger     logger.Logger
	dispatcher *dispatcher.Dispatcher
	channel    *telegram.Channel
	server     *http.Server
	cache      *cache.Cache

	db     *pgxpool.Pool
	redis  *redis.Client
	amqp   *cache.AMQPBroadcaster
	memory *memorystore.Store
}

// NewApp cria todos os colaboradores e o despachante
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: log}
	loc := cfg.Location()
	// em qualquer falha, libera o que já foi aberto (AMQP, Redis, Postgres, Badger)
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Agenda e tarefas
	httpClient, err := google.NewHTTPClient(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile)
	if err != nil {
		return nil, err
	}
	calSvc, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar serviço de agenda: %w", err)
	}
	tasksSvc, err := gtasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar serviço de tarefas: %w", err)
	}

	// Cache de leitura, com aviso entre instâncias quando houver RabbitMQ
	a.cache = cache.New(cfg.Cache.TTL, log)
	if cfg.AMQP.URL != "" {
		b, err := cache.NewAMQPBroadcaster(cfg.AMQP.URL, log)
		if err != nil {
			log.Warn("RabbitMQ indisponível, invalidação fica só local", "error", err)
		} else {
			a.amqp = b
			a.cache.WithBroadcaster(b)
		}
	}

	events := cache.NewEvents(google.NewCalendar(calSvc, cfg.Google.CalendarID, loc, log), a.cache)
	tasks := cache.NewTasks(google.NewTasks(tasksSvc, cfg.Google.TaskListID, log), a.cache)
	board := cache.NewBoard(trello.NewClient(trello.Config{
		Key:     cfg.Trello.Key,
		Token:   cfg.Trello.Token,
		BoardID: cfg.Trello.BoardID,
		BaseURL: cfg.Trello.BaseURL,
	}, nil, log), a.cache)

	// Classificador
	gen, err := gemini.NewGenAI(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}
	classifier := gemini.NewClassifier(gen, circuitbreaker.New(circuitbreaker.DefaultConfig()), loc, cfg.Gemini.Timeout, log)

	// Anotações
	a.memory, err = memorystore.Open(filepath.Join(cfg.DataDir, "memory"), log)
	if err != nil {
		return nil, err
	}

	// Histórico de conversa (opcional)
	var chatLog chat.Repository
	if cfg.Database.URL != "" {
		a.db, err = database.NewPostgresDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Warn("PostgreSQL indisponível, seguindo sem histórico de conversa", "error", err)
		} else {
			chatLog = repository.NewChatRepository(a.db)
		}
	}

	confirmations, history, flows, err := a.openState()
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}
	schedule := conflict.Config{
		DefaultDuration: cfg.Schedule.DefaultDuration,
		WorkStartHour:   cfg.Schedule.WorkStartHour,
		WorkEndHour:     cfg.Schedule.WorkEndHour,
		WarnStartHour:   cfg.Schedule.WarnStartHour,
		WarnEndHour:     cfg.Schedule.WarnEndHour,
		SearchDays:      cfg.Schedule.SearchDays,
		MaxSuggestions:  cfg.Schedule.MaxSuggestions,
	}

	a.dispatcher = dispatcher.New(dispatcher.Deps{
		Classifier:    classifier,
		Events:        events,
		Tasks:         tasks,
		Board:         board,
		Memory:        a.memory,
		ChatLog:       chatLog,
		Conflicts:     conflict.NewEngine(events, schedule, time.Now),
		Confirmations: confirmations,
		History:       history,
		Flows:         flows,
		Invalidator:   a.cache,
		Matcher:       fuzzy.New(),
		Retry:         policy,
		Location:      loc,
		Logger:        log,
	})

	a.channel, err = telegram.New(cfg.Telegram.Token, telegram.Config{
		AllowedUserIDs: cfg.Telegram.AllowedUserIDs,
		PollTimeout:    cfg.Telegram.PollTimeout,
	}, a.dispatcher, log)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar no Telegram: %w", err)
	}

	if cfg.HTTP.JWTSecret != "" {
		jwt, err := auth.NewJWTService(cfg.HTTP.JWTSecret, cfg.HTTP.PasswordHash, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		router := route.SetupRouter(jwt,
			controller.NewAuthController(jwt, log),
			controller.NewMessageController(a.dispatcher, log))
		a.server = &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
	} else {
		log.Info("JWT_SECRET_KEY ausente, API HTTP desativada")
	}

	return a, nil
}

// openState abre os stores de confirmação, histórico e fluxo. Com Redis
// configurado as confirmações usam o TTL nativo dele; o resto fica em disco.
func (a *App) openState() (*state.ConfirmationStore, *state.ActionHistoryStore, *state.FlowStore, error) {
	cfg := a.cfg
	dir := cfg.DataDir

	var confirmStore state.Store[state.Confirmation]
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		confirmStore = state.NewRedisStore[state.Confirmation](a.redis, "bot:confirmation", cfg.State.ConfirmationTTL)
	} else {
		fs, err := state.OpenFileStore[state.Confirmation](filepath.Join(dir, "confirmations.json"))
		if err != nil {
			return nil, nil, nil, err
		}
		confirmStore = fs
	}

	historyStore, err := state.OpenFileStore[[]state.HistoryEntry](filepath.Join(dir, "history.json"))
	if err != nil {
		return nil, nil, nil, err
	}
	flowStore, err := state.OpenFileStore[state.FlowState](filepath.Join(dir, "flows.json"))
	if err != nil {
		return nil, nil, nil, err
	}

	return state.NewConfirmationStore(confirmStore, cfg.State.ConfirmationTTL, time.Now),
		state.NewActionHistoryStore(historyStore, cfg.State.HistoryLimit, time.Now, a.logger),
		state.NewFlowStore(flowStore, time.Now),
		nil
}

// Run atende o Telegram e a API até o contexto terminar ou um deles falhar
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.amqp != nil {
		go func() {
			if err := a.amqp.Listen(ctx, a.cache); err != nil && ctx.Err() == nil {
				a.logger.Warn("Consumo de invalidações encerrado", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.logger.Info("API HTTP iniciada", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("erro no servidor HTTP: %w", err)
				cancel()
			}
		}()
	}

	a.logger.Info("Bot do Telegram iniciado")
	runErr := a.channel.Start(ctx)

	if a.server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Erro ao encerrar servidor HTTP", "error", err)
		}
	}

	select {
	case err := <-serverErr:
		return err
	default:
		return runErr
	}
}

// Close libera os recursos da aplicação
func (a *App) Close() {
	if a.amqp != nil {
		a.amqp.Close()
	}
	if a.memory != nil {
		if err := a.memory.Close(); err != nil {
			a.logger.Warn("Erro ao fechar base de anotações", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
