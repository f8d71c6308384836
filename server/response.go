package server

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"deskchat/model"
)

// Response is the envelope for every non-streaming endpoint.
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponse returns a successful response.
func SuccessResponse(c *app.RequestContext, data any) {
	c.JSON(consts.StatusOK, Response{
		Code:    "SUCCESS",
		Message: "operation successful",
		Data:    data,
	})
}

// CreatedResponse returns a created response.
func CreatedResponse(c *app.RequestContext, data any) {
	c.JSON(consts.StatusCreated, Response{
		Code:    "CREATED",
		Message: "resource created successfully",
		Data:    data,
	})
}

// NoContentResponse returns a no content response for delete operations.
func NoContentResponse(c *app.RequestContext) {
	c.Status(consts.StatusNoContent)
}

// BadRequestResponse returns a bad request with an explicit message.
func BadRequestResponse(c *app.RequestContext, message string) {
	c.JSON(consts.StatusBadRequest, Response{
		Code:    "INVALID_INPUT",
		Message: message,
	})
}

// ErrorResponse maps an error from the chat core onto an HTTP status.
// Internal errors surface with no detail.
func ErrorResponse(c *app.RequestContext, err error) {
	switch {
	case model.IsInvalidInput(err), model.IsUnsupportedModel(err),
		errors.Is(err, model.ErrProviderNotConfigured):
		c.JSON(consts.StatusBadRequest, Response{
			Code:    "INVALID_INPUT",
			Message: err.Error(),
		})
	case model.IsSessionNotFound(err):
		c.JSON(consts.StatusNotFound, Response{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case model.IsUnknownProvider(err):
		c.JSON(consts.StatusNotFound, Response{
			Code:    "UNKNOWN_PROVIDER",
			Message: err.Error(),
		})
	case model.IsSessionBusy(err), model.IsMessageNotOpen(err):
		c.JSON(consts.StatusConflict, Response{
			Code:    "CONFLICT",
			Message: err.Error(),
		})
	case model.IsOverloaded(err):
		c.JSON(consts.StatusTooManyRequests, Response{
			Code:    "OVERLOADED",
			Message: "server is at capacity, retry later",
		})
	case model.IsProviderTimeout(err):
		c.JSON(consts.StatusGatewayTimeout, Response{
			Code:    "PROVIDER_TIMEOUT",
			Message: "provider did not answer in time",
		})
	case model.IsAuthError(err), model.IsNetworkError(err), model.IsProviderError(err):
		c.JSON(consts.StatusBadGateway, Response{
			Code:    "PROVIDER_ERROR",
			Message: err.Error(),
		})
	default:
		c.JSON(consts.StatusInternalServerError, Response{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		})
	}
}
