package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger é a interface para logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ZapLogger implementa Logger sobre o SugaredLogger do zap
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger cria uma nova instância de Logger no nível informado (debug, info, warn, error)
func NewLogger(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: l.Sugar()}, nil
}

// Wrap adapta um *zap.Logger já existente
func Wrap(l *zap.Logger) Logger {
	return &ZapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewNop retorna um Logger que descarta tudo (usado em testes)
func NewNop() Logger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

// Info registra uma mensagem de informação
func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Error registra uma mensagem de erro
func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Debug registra uma mensagem de debug
func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Warn registra uma mensagem de aviso
func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// With retorna um Logger com campos fixos adicionados
func (l *ZapLogger) With(keysAndValues ...interface{}) Logger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues...)}
}

// Sync descarrega buffers pendentes
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync descarrega o logger se a implementação suportar
func Sync(l Logger) {
	if s, ok := l.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
