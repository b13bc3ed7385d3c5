package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-service/pkg/errno"
)

// Response is the JSON envelope for API endpoints. Media and manifest bytes
// are served raw, outside this envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func fail(c *gin.Context, err error) {
	var en *errno.Errno
	if !errors.As(err, &en) {
		en = errno.ErrInternalServer
	}
	c.JSON(httpStatusFor(en), Response{Code: en.Code, Message: en.Message})
}

func httpStatusFor(en *errno.Errno) int {
	switch en {
	case errno.ErrForbidden, errno.ErrPathOutsideRoot:
		return http.StatusForbidden
	case errno.ErrNotFound, errno.ErrPublishNotFound, errno.ErrManifestMissing:
		return http.StatusNotFound
	case errno.ErrMalformedSource, errno.ErrUnsupportedMime:
		return http.StatusUnprocessableEntity
	case errno.ErrInternalServer, errno.ErrDatabase, errno.ErrTranscodeFailed, errno.ErrQueueClosed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
