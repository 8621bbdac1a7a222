package dto

import "time"

// TokenRequest representa os dados para obter um token
type TokenRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse representa o token emitido
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
