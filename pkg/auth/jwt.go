package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Erros específicos
var (
	ErrInvalidToken    = errors.New("token inválido")
	ErrExpiredToken    = errors.New("token expirado")
	ErrInvalidClaims   = errors.New("claims inválidas")
	ErrMissingJWTKey   = errors.New("chave secreta JWT não configurada")
	ErrInvalidPassword = errors.New("senha inválida")
)

const issuer = "meu-bot-agenda"

// JWTClaims representa as claims do token emitido para a API
type JWTClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// JWTService emite e valida tokens da API HTTP
type JWTService struct {
	secretKey    []byte
	passwordHash []byte
	expiration   time.Duration
	now          func() time.Time
}

// NewJWTService cria o serviço. passwordHash é o hash bcrypt da senha do operador.
func NewJWTService(secret, passwordHash string, expiration time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, ErrMissingJWTKey
	}
	// Duração padrão de 24 horas se não for configurado
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &JWTService{
		secretKey:    []byte(secret),
		passwordHash: []byte(passwordHash),
		expiration:   expiration,
		now:          time.Now,
	}, nil
}

// Authenticate confere a senha e gera o token
func (s *JWTService) Authenticate(password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidPassword
	}
	return s.GenerateToken("operator")
}

// GenerateToken gera um token para o operador informado
func (s *JWTService) GenerateToken(operator string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiration)

	claims := JWTClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken valida um token JWT e retorna as claims se for válido
func (s *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verificar o método de assinatura
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
