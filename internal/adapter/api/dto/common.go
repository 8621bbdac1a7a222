package dto

import (
	"net/http"
)

// ErrorResponse é o corpo de qualquer falha da API. Respostas do bot, mesmo
// as de erro de negócio ("não encontrei o evento"), saem como MessageResponse.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse embrulha as leituras da API (histórico de ações)
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InvalidRequest descreve um corpo JSON recusado pelo binding do gin
func InvalidRequest(err error) ErrorResponse {
	return ErrorResponse{Code: http.StatusBadRequest, Message: "Requisição inválida", Details: err.Error()}
}

func Failure(status int, message, details string) ErrorResponse {
	return ErrorResponse{Code: status, Message: message, Details: details}
}

func Found(message string, data any) SuccessResponse {
	return SuccessResponse{Message: message, Data: data}
}
