package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Erros de validação
var (
	ErrMissingTelegramToken = errors.New("token do Telegram não configurado")
	ErrMissingGeminiKey     = errors.New("chave da API Gemini não configurada")
)

// Config agrupa todas as configurações do bot
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Timezone string   `yaml:"timezone"`
	DataDir  string   `yaml:"data_dir"`
	Telegram Telegram `yaml:"telegram"`
	Gemini   Gemini   `yaml:"gemini"`
	Trello   Trello   `yaml:"trello"`
	Google   Google   `yaml:"google"`
	Redis    Redis    `yaml:"redis"`
	Database Database `yaml:"database"`
	AMQP     AMQP     `yaml:"amqp"`
	HTTP     HTTP     `yaml:"http"`
	Retry    Retry    `yaml:"retry"`
	Schedule Schedule `yaml:"schedule"`
	State    State    `yaml:"state"`
	Cache    Cache    `yaml:"cache"`
}

type Telegram struct {
	Token          string  `yaml:"token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
	PollTimeout    int     `yaml:"poll_timeout"`
}

type Gemini struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type Trello struct {
	Key     string `yaml:"key"`
	Token   string `yaml:"token"`
	BoardID string `yaml:"board_id"`
	BaseURL string `yaml:"base_url"`
}

type Google struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	CalendarID      string `yaml:"calendar_id"`
	TaskListID      string `yaml:"tasklist_id"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Database struct {
	URL string `yaml:"url"`
}

type AMQP struct {
	URL string `yaml:"url"`
}

type HTTP struct {
	Port         string `yaml:"port"`
	JWTSecret    string `yaml:"jwt_secret"`
	PasswordHash string `yaml:"password_hash"`
}

// Retry controla a política de backoff das chamadas remotas
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Schedule controla a detecção de conflitos e as sugestões de horário
type Schedule struct {
	DefaultDuration time.Duration `yaml:"default_duration"`
	WorkStartHour   int           `yaml:"work_start_hour"`
	WorkEndHour     int           `yaml:"work_end_hour"`
	WarnStartHour   int           `yaml:"warn_start_hour"`
	WarnEndHour     int           `yaml:"warn_end_hour"`
	SearchDays      int           `yaml:"search_days"`
	MaxSuggestions  int           `yaml:"max_suggestions"`
}

type State struct {
	ConfirmationTTL time.Duration `yaml:"confirmation_ttl"`
	HistoryLimit    int           `yaml:"history_limit"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default retorna a configuração padrão
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Timezone: "America/Sao_Paulo",
		DataDir:  "data",
		Telegram: Telegram{PollTimeout: 30},
		Gemini:   Gemini{Model: "gemini-2.0-flash", Timeout: 20 * time.Second},
		Trello:   Trello{BaseURL: "https://api.trello.com/1"},
		Google:   Google{CredentialsFile: "credentials.json", TokenFile: "token.json", CalendarID: "primary", TaskListID: "@default"},
		HTTP:     HTTP{Port: "8080"},
		Retry:    Retry{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second},
		Schedule: Schedule{
			DefaultDuration: 60 * time.Minute,
			WorkStartHour:   8,
			WorkEndHour:     20,
			WarnStartHour:   7,
			WarnEndHour:     22,
			SearchDays:      3,
			MaxSuggestions:  3,
		},
		State: State{ConfirmationTTL: 2 * time.Minute, HistoryLimit: 20},
		Cache: Cache{TTL: 60 * time.Second},
	}
}

// Load lê o arquivo YAML (se existir) e aplica as variáveis de ambiente por cima
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sem arquivo, seguimos com os padrões
		default:
			return nil, fmt.Errorf("erro ao abrir %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Timezone, "BOT_TIMEZONE")
	setString(&c.DataDir, "BOT_DATA_DIR")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Trello.Key, "TRELLO_KEY")
	setString(&c.Trello.Token, "TRELLO_TOKEN")
	setString(&c.Trello.BoardID, "TRELLO_BOARD_ID")
	setString(&c.Google.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&c.Google.TokenFile, "GOOGLE_TOKEN_FILE")
	setString(&c.Google.CalendarID, "GOOGLE_CALENDAR_ID")
	setString(&c.Google.TaskListID, "GOOGLE_TASKLIST_ID")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.AMQP.URL, "AMQP_URL")
	setString(&c.HTTP.Port, "HTTP_PORT")
	setString(&c.HTTP.JWTSecret, "JWT_SECRET_KEY")
	setString(&c.HTTP.PasswordHash, "API_PASSWORD_HASH")

	if raw := os.Getenv("ALLOWED_USER_IDS"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return fmt.Errorf("ALLOWED_USER_IDS inválido: %w", err)
		}
		c.Telegram.AllowedUserIDs = ids
	}
	return nil
}

// Validate verifica se as credenciais obrigatórias estão presentes
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingTelegramToken
	}
	if c.Gemini.APIKey == "" {
		return ErrMissingGeminiKey
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("fuso horário inválido %q: %w", c.Timezone, err)
	}
	return nil
}

// Location retorna o fuso configurado, caindo para UTC se inválido
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
