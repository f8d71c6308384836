package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"deskchat/logger"
)

// RequestIDKey is the request ID header.
const RequestIDKey = "X-Request-ID"

// RequestLogger logs one line per request with a propagated request ID.
func RequestLogger() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		path := string(c.Path())

		skipLogging := path == "/api/health"

		requestID := string(c.Request.Header.Peek(RequestIDKey))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response.Header.Set(RequestIDKey, requestID)

		reqLogger := slog.Default().With(
			"request_id", requestID,
			"method", string(c.Method()),
			"path", path,
			"client_ip", c.ClientIP(),
		)
		if !skipLogging {
			reqLogger.Info("request started")
		}

		// Handlers pick the request-scoped logger back up via
		// logger.FromContext.
		c.Next(logger.WithContext(ctx, reqLogger))

		if !skipLogging {
			latency := time.Since(start)
			statusCode := c.Response.StatusCode()

			reqLogger = reqLogger.With(
				"status", statusCode,
				"latency_ms", latency.Milliseconds(),
			)

			switch {
			case statusCode >= 500:
				reqLogger.Error("request completed with server error")
			case statusCode >= 400:
				reqLogger.Warn("request completed with client error")
			default:
				reqLogger.Info("request completed")
			}
		}
	}
}

// Recovery converts handler panics into 500 responses instead of taking
// down the connection.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered", "panic", r, "path", string(c.Path()))
				c.JSON(consts.StatusInternalServerError, Response{
					Code:    "INTERNAL_ERROR",
					Message: "internal server error",
				})
				c.Abort()
			}
		}()
		c.Next(ctx)
	}
}

// CORS allows browser clients on other origins to call the API.
func CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Response.Header.Set("Access-Control-Allow-Origin", "*")
		c.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDKey)

		if string(c.Method()) == "OPTIONS" {
			c.Status(consts.StatusNoContent)
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}
