package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *JWTService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, err := NewJWTService("chave", string(hash), time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService("", "", 0)
	assert.ErrorIs(t, err, ErrMissingJWTKey)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t)

	_, _, err := svc.Authenticate("errada")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	token, expiresAt, err := svc.Authenticate("segredo")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Operator)
}

func TestExpiredToken(t *testing.T) {
	svc := newService(t)
	token, _, err := svc.GenerateToken("operator")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenFromAnotherKeyIsRejected(t *testing.T) {
	other, err := NewJWTService("outra", "", time.Hour)
	require.NoError(t, err)
	token, _, err := other.GenerateToken("operator")
	require.NoError(t, err)

	_, err = newService(t).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t)
	token, _, err := svc.GenerateToken("operator")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/x", JWTAuthMiddleware(svc), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(OperatorKey))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"sem cabeçalho", "", http.StatusUnauthorized},
		{"formato errado", "Token " + token, http.StatusUnauthorized},
		{"token inválido", "Bearer abc", http.StatusUnauthorized},
		{"válido", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
