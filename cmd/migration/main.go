package main

import (
	"flag"
	"log"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/infrastructure/database"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/config"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/joho/godotenv"
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

	appLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Erro ao criar logger: %v", err)
	}
	defer logger.Sync(appLogger)

	// Executar as migrações
	if err := database.RunMigrations(cfg.Database.URL, appLogger); err != nil {
		appLogger.Error("Erro ao executar migrações", "error", err)
		log.Fatalf("Erro ao executar migrações: %v", err)
	}

	log.Println("Migrações executadas com sucesso!")
}
