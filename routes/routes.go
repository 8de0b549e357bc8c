package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"duochat/config"
	"duochat/gateway"
	"duochat/handlers"
	"duochat/middleware"
)

func Setup(cfg *config.Config, api *handlers.API, hub *gateway.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	// Uploaded files are served straight off disk.
	router.Static("/uploads", cfg.UploadDir)

	router.POST("/auth/register", api.Register)
	router.POST("/auth/login", api.Login)

	// The websocket handshake authenticates itself via the token in the
	// query string, so it sits outside the middleware chain.
	router.GET("/ws", func(c *gin.Context) {
		hub.HandleUpgrade(c.Writer, c.Request)
	})

	protected := router.Group("/")
	protected.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitWindow))
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))

	protected.GET("/users", api.ListUsers)
	protected.GET("/me", api.Me)
	protected.PUT("/me", api.UpdateMe)
	protected.POST("/me/profile-image", api.UploadProfileImage)
	protected.GET("/user/:id", api.GetUser)

	protected.GET("/chat/messages/:receiverId", api.GetMessages)
	protected.GET("/chat/recent", api.RecentChats)
	protected.POST("/chat/message", api.SendMessage)
	protected.POST("/chat/upload", api.UploadChatFile)
	protected.POST("/chat/mark-read/:senderId", api.MarkConversationRead)
	protected.POST("/chat/mark-all-read", api.MarkAllRead)
	protected.GET("/chat/notifications", api.Notifications)

	protected.GET("/push/vapid-public-key", api.VapidPublicKey)
	protected.POST("/push/subscribe", api.SubscribePush)
	protected.DELETE("/push/subscribe", api.UnsubscribePush)

	return router
}
