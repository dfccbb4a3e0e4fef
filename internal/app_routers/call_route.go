package approuters

import (
	"Campus/internal/configuration"

	"github.com/gin-gonic/gin"
)

func CallRouters(router *gin.Engine, container *configuration.Container) {
	h := container.CallHandler

	callRoute := router.Group("/campus/api/calls")
	{
		callRoute.POST("", h.CreateCall)
		callRoute.GET("/:id", h.GetCall)
		callRoute.PUT("/:id/answer", h.AnswerCall)
		callRoute.POST("/:id/candidates", h.AddCandidate)
		callRoute.GET("/:id/candidates", h.GetCandidates)
		callRoute.DELETE("/:id", h.HangUp)
	}
}
