package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
)

// NewServer builds the HTTP server: REST API under /api, the push channel
// on /ws and a health probe.
func NewServer(router *core.Router, authService *auth.Service, gateway *messaging.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", healthHandler)
	engine.GET("/ws", gin.WrapH(NewWSHandler(router, authService, gateway, cfg, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	chatHandlers := NewChatHandlers(gateway, logger)
	userHandlers := NewUserHandlers(gateway, logger)

	api := engine.Group("/api")
	api.Use(LoggerMiddleware(logger))
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	protected.GET("/users/search", userHandlers.SearchUsers)
	protected.POST("/chats", chatHandlers.CreateChat)
	protected.GET("/chats", chatHandlers.ListChats)
	protected.GET("/chats/:chatId", chatHandlers.GetChat)
	protected.POST("/chats/:chatId/messages", chatHandlers.SendMessage)
	protected.GET("/chats/:chatId/messages", chatHandlers.ListMessages)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
