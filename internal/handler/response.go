package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abaflow/practice-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps a service error kind to its HTTP status.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch errors.KindOf(err) {
	case errors.KindValidation:
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case errors.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case errors.KindInvalidState, errors.KindAlreadyJustified:
		status = http.StatusConflict
		message = err.Error()
	case errors.KindForbidden:
		status = http.StatusForbidden
		message = err.Error()
	default:
		_ = c.Error(err)
	}

	c.JSON(status, NewErrorResponse(message))
}
