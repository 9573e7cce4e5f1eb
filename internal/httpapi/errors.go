// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

// Messages for failures detected before a flow runs.
const (
	MessageUnknownSite   = "Unknown site."
	MessageInvalidBody   = "Invalid request body."
	MessageRouteNotFound = "Not found."
	MessageNotAllowed    = "Method not allowed."
	MessageBodyTooLarge  = "Request body too large."
)

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

var callerStatus = map[auth.Code]int{
	auth.CodeEmailRequired:          http.StatusBadRequest,
	auth.CodePasswordRequired:       http.StatusBadRequest,
	auth.CodeRepeatPasswordRequired: http.StatusBadRequest,
	auth.CodePasswordMismatch:       http.StatusBadRequest,
	auth.CodeAlreadyRegistered:      http.StatusConflict,
	auth.CodeInvalidCredentials:     http.StatusUnauthorized,
	auth.CodeNotRegistered:          http.StatusNotFound,
	auth.CodeTokenRequired:          http.StatusBadRequest,
	auth.CodeTokenInvalid:           http.StatusBadRequest,
}

// StatusFor maps a flow code to an HTTP status. System faults and unknown
// codes are 500.
func StatusFor(code auth.Code) int {
	if status, ok := callerStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorHandler writes flow, routing and unexpected errors as JSON.
// System faults never expose their code or cause.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := describe(err)
		if status == http.StatusInternalServerError && !isFlowError(err) {
			// Flows log their own faults; anything else is logged here.
			errutil.LogErrorContext(c.Request().Context(), logger, "request failed", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func describe(err error) (int, errorResponse) {
	var flowErr *auth.Error
	if errors.As(err, &flowErr) {
		if flowErr.Kind() == auth.KindSystem {
			return http.StatusInternalServerError, errorResponse{Error: errorDetail{Message: auth.GenericMessage}}
		}
		return StatusFor(flowErr.Code), errorResponse{Error: errorDetail{
			Message: flowErr.SafeMessage(),
			Code:    string(flowErr.Code),
		}}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, errorResponse{Error: errorDetail{Message: auth.GenericMessage}}
		}
		return httpErr.Code, errorResponse{Error: errorDetail{Message: httpMessage(httpErr)}}
	}

	return http.StatusInternalServerError, errorResponse{Error: errorDetail{Message: auth.GenericMessage}}
}

func httpMessage(e *echo.HTTPError) string {
	if msg, ok := e.Message.(string); ok && msg != "" && msg != http.StatusText(e.Code) {
		return msg
	}
	switch e.Code {
	case http.StatusNotFound:
		return MessageRouteNotFound
	case http.StatusMethodNotAllowed:
		return MessageNotAllowed
	case http.StatusRequestEntityTooLarge:
		return MessageBodyTooLarge
	default:
		return http.StatusText(e.Code)
	}
}

func isFlowError(err error) bool {
	var flowErr *auth.Error
	return errors.As(err, &flowErr)
}
