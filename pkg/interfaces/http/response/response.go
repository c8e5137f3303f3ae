package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// Response is the envelope every endpoint returns
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes; the HTTP status is code/100
const (
	CodeBadRequest    = 40000
	CodeNotFound      = 40400
	CodeConflict      = 40900
	CodeUnprocessable = 42200
	CodeInternal      = 50000
)

// Success writes a 200 envelope
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created writes a 201 envelope
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// Accepted writes a 202 envelope for work that continues in the background
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{Code: 0, Message: "accepted", Data: data})
}

// Error writes an error envelope
func Error(c *gin.Context, code int, message string) {
	status := code / 100
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{Code: code, Message: message})
}

// ErrorWithData writes an error envelope that still carries a payload
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	status := code / 100
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{Code: code, Message: message, Data: data})
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, CodeBadRequest, message)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// InternalError 500
func InternalError(c *gin.Context, message string) {
	Error(c, CodeInternal, message)
}

// CodeFor maps a domain error onto an envelope code
func CodeFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, entities.ErrInvalidTransition),
		errors.Is(err, entities.ErrDuplicateDefaultBOM):
		return CodeConflict
	case errors.Is(err, entities.ErrCyclicStructure),
		errors.Is(err, entities.ErrUnitConversion),
		errors.Is(err, entities.ErrMaxDepthExceeded):
		return CodeUnprocessable
	default:
		return CodeInternal
	}
}

// FromError writes the envelope matching a domain error
func FromError(c *gin.Context, err error) {
	Error(c, CodeFor(err), err.Error())
}
