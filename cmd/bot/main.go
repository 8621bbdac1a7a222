package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/config"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "arquivo de configuração")
	flag.Parse()

	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		log.Printf("Aviso: Arquivo .env não encontrado: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Erro ao carregar configuração: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Erro ao criar logger: %v", err)
	}
	defer logger.Sync(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Erro ao iniciar aplicação", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		appLogger.Error("Aplicação encerrada com erro", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Aplicação encerrada")
}
