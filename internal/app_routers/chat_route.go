package approuters

import (
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/configuration"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/handler"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	h := container.ChatHandler

	messageRoute := router.Group("/api/messages", handler.AuthMiddleware(container.Verifier, container.Logger))
	{
		messageRoute.GET("/conversations", h.ListConversations)
		messageRoute.POST("/conversations", h.CreateConversation)
		messageRoute.GET("/:conversationId", h.GetMessages)
		messageRoute.POST("/:conversationId", h.SendMessage)
		messageRoute.PUT("/:conversationId/read", h.MarkAsRead)
		messageRoute.DELETE("/:conversationId", h.ArchiveConversation)
		messageRoute.DELETE("/:conversationId/messages/:messageId", h.DeleteMessage)
	}
}
