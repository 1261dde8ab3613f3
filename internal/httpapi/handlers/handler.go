package handlers

import (
	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/config"
	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Cfg     config.Config
	ChatSvc *chat.Service
	Hub     *push.Hub
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, hub *push.Hub) *Handler {
	return &Handler{Cfg: cfg, ChatSvc: chatSvc, Hub: hub}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

// currentUser reads the identity the auth middleware stored on the context.
func currentUser(c *gin.Context) *models.User {
	return &models.User{
		ID:   c.GetUint64("user_id"),
		Role: c.GetString("role"),
	}
}
