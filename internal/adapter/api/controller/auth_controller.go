package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/dto"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/auth"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

// AuthController gerencia as requisições relacionadas à autenticação
type AuthController struct {
	jwt    *auth.JWTService
	logger logger.Logger
}

// NewAuthController cria uma nova instância de AuthController
func NewAuthController(jwt *auth.JWTService, log logger.Logger) *AuthController {
	return &AuthController{jwt: jwt, logger: log}
}

// Token autentica o operador e retorna um token JWT
// @Summary Emite um token de acesso
// @Description Verifica a senha do operador e retorna um token JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Senha do operador"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/token [post]
func (c *AuthController) Token(ctx *gin.Context) {
	var request dto.TokenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.InvalidRequest(err))
		return
	}

	token, expiresAt, err := c.jwt.Authenticate(request.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			c.logger.Warn("Tentativa de autenticação com senha inválida", "ip", ctx.ClientIP())
			ctx.JSON(http.StatusUnauthorized, dto.Failure(http.StatusUnauthorized, "Credenciais inválidas", "Senha incorreta"))
			return
		}
		c.logger.Error("Erro ao gerar token", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.Failure(http.StatusInternalServerError, "Erro ao gerar token", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.TokenResponse{AccessToken: token, ExpiresAt: expiresAt})
}
