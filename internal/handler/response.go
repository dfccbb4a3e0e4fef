package handler

import (
	"Campus/pkg/apperrors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ApiResponse is the envelope every endpoint answers with
type ApiResponse struct {
	HttpStatusCode int    `json:"HttpStatusCode"`
	ResponseBody   any    `json:"ResponseBody"`
	IsSuccess      bool   `json:"IsSuccess"`
	Message        string `json:"Message"`
}

func respond(c *gin.Context, status int, body any, message string) {
	c.JSON(status, ApiResponse{
		HttpStatusCode: status,
		ResponseBody:   body,
		IsSuccess:      status < http.StatusBadRequest,
		Message:        message,
	})
}

func respondError(c *gin.Context, err error) {
	respond(c, apperrors.HTTPStatus(err), nil, apperrors.Message(err))
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, nil, message)
}

func pageParam(c *gin.Context) (int64, bool) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		badRequest(c, "Invalid page number")
		return 0, false
	}
	return page, true
}
