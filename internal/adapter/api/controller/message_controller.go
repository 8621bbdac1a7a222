package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/dto"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/dispatcher"
	"github.com/andrelucas-arraes/meu-bot-agenda/internal/state"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

// Bot é o despachante visto pela API
type Bot interface {
	HandleMessage(ctx context.Context, userID, text string) dispatcher.Reply
	HandleCallback(ctx context.Context, userID, data string) dispatcher.Reply
	ActionHistory(ctx context.Context, userID string) []state.HistoryEntry
}

// MessageController expõe o despachante por HTTP
type MessageController struct {
	bot    Bot
	logger logger.Logger
}

func NewMessageController(bot Bot, log logger.Logger) *MessageController {
	return &MessageController{bot: bot, logger: log}
}

// Send processa uma mensagem como se tivesse vindo do chat
// @Summary Envia uma mensagem ao bot
// @Tags messages
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.MessageRequest true "Mensagem"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /message [post]
func (c *MessageController) Send(ctx *gin.Context) {
	var request dto.MessageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.InvalidRequest(err))
		return
	}

	c.logger.Debug("Mensagem recebida pela API", "user_id", request.UserID)
	reply := c.bot.HandleMessage(ctx.Request.Context(), request.UserID, request.Text)
	ctx.JSON(http.StatusOK, dto.FromReply(reply))
}

// Callback processa o toque num botão inline
// @Summary Responde a um botão inline
// @Tags messages
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CallbackRequest true "Dados do botão"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /callback [post]
func (c *MessageController) Callback(ctx *gin.Context) {
	var request dto.CallbackRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.InvalidRequest(err))
		return
	}

	reply := c.bot.HandleCallback(ctx.Request.Context(), request.UserID, request.Data)
	ctx.JSON(http.StatusOK, dto.FromReply(reply))
}

// History lista o histórico de ações do usuário, mais recente primeiro
// @Summary Histórico de ações
// @Tags messages
// @Produce json
// @Security Bearer
// @Param user_id path string true "ID do usuário"
// @Success 200 {object} dto.SuccessResponse{data=[]dto.HistoryEntryResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Router /history/{user_id} [get]
func (c *MessageController) History(ctx *gin.Context) {
	userID := ctx.Param("user_id")
	entries := c.bot.ActionHistory(ctx.Request.Context(), userID)
	ctx.JSON(http.StatusOK, dto.Found("Histórico recuperado com sucesso", dto.FromHistory(entries)))
}
