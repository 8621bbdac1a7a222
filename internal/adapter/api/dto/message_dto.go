package dto

import (
	"encoding/json"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/dispatcher"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
)

// MessageRequest é uma mensagem enviada ao bot pela API
type MessageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// ButtonResponse é um botão inline da resposta
type ButtonResponse struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// MessageResponse é a resposta do bot
type MessageResponse struct {
	Text    string             `json:"text"`
	Buttons [][]ButtonResponse `json:"buttons,omitempty"`
}

// CallbackRequest simula o toque num botão inline
type CallbackRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Data   string `json:"data" binding:"required"`
}

// HistoryEntryResponse é uma ação registrada no histórico de desfazer
type HistoryEntryResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	UndoType  string          `json:"undo_type"`
	Data      json.RawMessage `json:"data,omitempty" swaggertype:"object"`
	Result    []string        `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Undone    bool            `json:"undone"`
}

// FromReply converte a resposta do despachante
func FromReply(r dispatcher.Reply) MessageResponse {
	resp := MessageResponse{Text: r.Text}
	for _, row := range r.Buttons {
		buttons := make([]ButtonResponse, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, ButtonResponse{Text: b.Text, Data: b.Data})
		}
		resp.Buttons = append(resp.Buttons, buttons)
	}
	return resp
}

// FromHistory converte as entradas do histórico
func FromHistory(entries []state.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:        e.ID,
			Type:      e.Type,
			UndoType:  e.UndoType,
			Data:      e.Data,
			Result:    e.Result,
			Timestamp: e.Timestamp,
			Undone:    e.Undone,
		})
	}
	return out
}
