package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/service"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := res.Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

type callerKey struct{}

// AuthMiddleware admits requests carrying a bearer session token of one of the
// allowed types and stores the caller's email in the request context.
func AuthMiddleware(allowed ...auth.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := logger.FromContext(req.Context())

			header := req.Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				l.Warn("missing bearer token")
				return c.JSON(http.StatusUnauthorized, errorResponse(service.NewError(service.ErrorCodeInvalidAuth, "missing token")))
			}

			claims, err := auth.VerifyToken(raw)
			if err != nil {
				l.Warn("invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, errorResponse(service.NewError(service.ErrorCodeInvalidAuth, "invalid token")))
			}

			if !slices.Contains(allowed, claims.Type) {
				l.Warn("token type not allowed", zap.String("type", string(claims.Type)))
				return c.JSON(http.StatusForbidden, errorResponse(service.NewError(service.ErrorCodeInvalidAuth, "forbidden")))
			}

			email := claims.Email()
			ctx := context.WithValue(req.Context(), callerKey{}, email)
			ctx = logger.WithLogger(ctx, l.With(zap.String("caller", email)))
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func callerFromContext(ctx context.Context) string {
	email, _ := ctx.Value(callerKey{}).(string)
	return email
}
