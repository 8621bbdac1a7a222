package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// chave do operador autenticado no contexto do gin
const OperatorKey = "operator"

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func abort(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
		Code:    http.StatusUnauthorized,
		Message: message,
		Details: details,
	})
}

// JWTAuthMiddleware exige um token Bearer válido
func JWTAuthMiddleware(svc *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "Autenticação requerida", "O cabeçalho Authorization não foi fornecido")
			return
		}

		// Verificar o formato "Bearer <token>"
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abort(c, "Formato de token inválido", "Use o formato 'Bearer <token>'")
			return
		}

		claims, err := svc.ValidateToken(tokenParts[1])
		if err != nil {
			message := "Token inválido"
			if errors.Is(err, ErrExpiredToken) {
				message = "Token expirado"
			}
			abort(c, message, err.Error())
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}
