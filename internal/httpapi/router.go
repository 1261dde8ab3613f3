package httpapi

import (
	"net/http"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/common"
	"github.com/artinalushaku/onlineStore-sub000/internal/config"
	"github.com/artinalushaku/onlineStore-sub000/internal/httpapi/handlers"
	"github.com/artinalushaku/onlineStore-sub000/internal/httpapi/middleware"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg config.Config, chatSvc *chat.Service, hub *push.Hub) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(cfg, chatSvc, hub)

	r.GET("/ping", h.Ping)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/ws", h.WS)
	authGroup.GET("/api/conversations", h.ListConversations)
	authGroup.GET("/api/conversations/:counterpart_id/messages", h.ListMessages)
	authGroup.POST("/api/messages", h.SendMessage)
	authGroup.DELETE("/api/conversations/:counterpart_id", h.DeleteConversation)
	authGroup.GET("/api/staff/any", h.AnyStaff)

	return r
}
