package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/service"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var rateLimitErr service.RateLimitError
		if errors.As(err, &rateLimitErr) {
			retryAfter := int(rateLimitErr.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, map[string]string{"reason": rateLimitErr.Error()})
			return
		}

		var responseErr util.ResponseError
		if errors.As(err, &responseErr) {
			c.JSON(responseErr.Status, map[string]string{"reason": responseErr.Msg})
			return
		}

		switch {
		case isUnauthorizedError(err):
			c.JSON(http.StatusUnauthorized, map[string]string{"reason": err.Error()})
			return
		case errors.Is(err, service.ErrPlaybackDenied):
			c.JSON(http.StatusForbidden, map[string]string{"reason": err.Error()})
			return
		case errors.Is(err, storage.ErrVideoNotFound):
			c.JSON(http.StatusNotFound, map[string]string{"reason": err.Error()})
			return
		}

		he, ok := err.(*echo.HTTPError)
		if ok {
			if he.Code == http.StatusInternalServerError {
				log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
			}
			if err := c.JSON(he.Code, map[string]string{"reason": fmt.Sprintf("%v", he.Message)}); err != nil {
				log.Errorw("failed to write json response", "error", err)
			}
			return
		}

		log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		c.JSON(http.StatusInternalServerError, map[string]string{"reason": "internal server error"})
	}
}

func isUnauthorizedError(err error) bool {
	return errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenRevoked) ||
		errors.Is(err, service.ErrInvalidCredentials) ||
		errors.Is(err, service.ErrInvalidUserID)
}
