package approuters

import (
	"Campus/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	h := container.ChatHandler

	api := router.Group("/campus/api")
	{
		api.GET("/conversations/:peerId/messages", h.GetMessages)
		api.POST("/conversations/:peerId/messages", h.SendMessage)
		api.PATCH("/messages/:messageId", h.EditMessage)
		api.DELETE("/messages/:messageId", h.DeleteMessage)
		api.GET("/users/:userId/summaries", h.GetSummaries)
	}
}
