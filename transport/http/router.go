package http

import (
	"github.com/gin-gonic/gin"
	"github.com/medilocker/medigate/service"
	"github.com/rs/zerolog"
)

// SetupRouter sets up the Gin router.
func SetupRouter(authService *service.AuthService, chatService *service.ChatService, log zerolog.Logger) *gin.Engine {
	router := gin.Default()

	authHandlers := NewAuthHandlers(authService)
	chatHandlers := NewChatHandlers(chatService, log)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/verify", authHandlers.Verify)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", authHandlers.Me)
		api.POST("/chat", chatHandlers.Chat)
	}

	return router
}
