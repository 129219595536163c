package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/auth"
	"github.com/vovakirdan/channelhub/internal/config"
	"github.com/vovakirdan/channelhub/internal/core"
)

// NewServer builds an HTTP server with the REST and WebSocket routes.
func NewServer(hub *core.Hub, authService *auth.Service, channelSvc ChannelQueries, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(channelSvc, logger)
	userHandlers := NewUserHandlers(hub.Sessions(), logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	protected.GET("/channels", channelHandlers.ListChannels)
	protected.GET("/channels/:name/users", channelHandlers.ListMembers)
	protected.GET("/users/online", userHandlers.OnlineUsers)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
