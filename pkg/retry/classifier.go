package retry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
)

// StatusCoder é implementado por erros que carregam o status HTTP da resposta
type StatusCoder interface {
	StatusCode() int
}

// Classify determina se um erro é transitório
// Retorna: (retryable, tipo do erro)
func Classify(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false, "permanent"
	}

	// Contexto cancelado nunca é repetido; deadline sim
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	// Erros de decodificação indicam resposta malformada
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// Status HTTP
	if code, ok := statusOf(err); ok {
		return classifyStatus(code)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "eof") {
		return true, "network_error"
	}

	return false, "unknown_error"
}

func statusOf(err error) (int, bool) {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

func classifyStatus(code int) (bool, string) {
	switch {
	case code == http.StatusTooManyRequests:
		return true, "rate_limited"
	case code == http.StatusRequestTimeout:
		return true, "timeout"
	case code >= 500:
		return true, "server_error"
	case code >= 400:
		return false, "client_error"
	default:
		return false, "unexpected_status"
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marca um erro como não repetível independente do tipo
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
