package shared

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTP wraps the error for echo's error handler, preserving the JSON
// code/message body.
func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func httpError(status int, code, message string) *echo.HTTPError {
	return (&APIError{Status: status, Code: code, Message: message}).ToHTTP(status)
}

func BadRequest(code, message string) *echo.HTTPError {
	return httpError(http.StatusBadRequest, code, message)
}

func Forbidden(code, message string) *echo.HTTPError {
	return httpError(http.StatusForbidden, code, message)
}

func Conflict(code, message string) *echo.HTTPError {
	return httpError(http.StatusConflict, code, message)
}

func BadGateway(code, message string) *echo.HTTPError {
	return httpError(http.StatusBadGateway, code, message)
}
