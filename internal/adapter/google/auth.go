package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"
)

// NewHTTPClient monta o cliente OAuth2 a partir do arquivo de credenciais
// do console do Google e do token já autorizado
func NewHTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler credenciais do Google: %w", err)
	}

	config, err := googleoauth.ConfigFromJSON(creds, calendar.CalendarScope, tasks.TasksScope)
	if err != nil {
		return nil, fmt.Errorf("credenciais do Google inválidas: %w", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler token do Google: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("token do Google inválido: %w", err)
	}

	return config.Client(ctx, &token), nil
}
