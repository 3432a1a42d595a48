package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	middleware "github.com/Skotchmaster/eyewear_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/eyewear_shop/pkg/util"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentFailed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under event and turns it into the HTTP error the client sees.
// Shopper-facing messages are passed through; internal failures are not.
func fail(l *slog.Logger, event string, err error, fallback string) error {
	status := statusOf(err)
	msg := service.Message(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", fallback, "error", err)
		return echo.NewHTTPError(status, fallback)
	}
	if msg == "" {
		msg = err.Error()
	}
	l.Warn(event, "status", status, "reason", msg, "error", err)
	return echo.NewHTTPError(status, msg)
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	sub, _ := c.Get(middleware.CtxUserID).(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user in access token")
	}
	return id, nil
}

func pageParams(c echo.Context) (page, size int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	return page, size
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, transport.MessageResponse{Message: msg})
}
