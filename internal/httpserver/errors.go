package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// statusFor maps an error category onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict), errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an ErrorResponse with the status its category maps to.
func (s *Server) fail(c echo.Context, err error, message string) error {
	return s.failWith(c, statusFor(err), err, message)
}

func (s *Server) failWith(c echo.Context, code int, err error, message string) error {
	resp := ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = errors.ScrubMessage(err.Error())
	}

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("api error", fields...)
	} else {
		s.log.Debug("api error", fields...)
	}
	return c.JSON(code, resp)
}

func (s *Server) badRequest(c echo.Context, message string) error {
	return s.failWith(c, http.StatusBadRequest, nil, message)
}

func (s *Server) unavailable(c echo.Context, service string) error {
	return s.failWith(c, http.StatusServiceUnavailable, nil, service+" is not enabled")
}

// errorHandler renders echo's own errors (unknown routes, bad methods) in the
// same shape as handler errors.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = s.failWith(c, he.Code, nil, msg)
		return
	}
	_ = s.fail(c, err, "internal error")
}
