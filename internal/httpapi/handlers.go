// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/observability"
)

// Reset actions accepted under reset-password/:action.
const (
	ResetActionEmail = "email"
	ResetActionReset = "reset"
)

// reservedFields never reach a stored profile.
var reservedFields = []string{"email", "password", "repeatPassword", "id"}

type idData struct {
	ID string `json:"id"`
}

type dataResponse struct {
	Data idData `json:"data"`
}

type emptyResponse struct{}

func (s *Server) handleLogin(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return err
	}
	site := siteOf(c)
	id, err := site.Flows.Login.Execute(c.Request().Context(), auth.LoginInput{
		Email:    stringField(body, "email"),
		Password: stringField(body, "password"),
	})
	s.recordFlow(auth.FlowLogin, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataResponse{Data: idData{ID: id}})
}

func (s *Server) handleRegister(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return err
	}
	site := siteOf(c)
	id, err := site.Flows.Register.Execute(c.Request().Context(), auth.Registration{
		Email:          stringField(body, "email"),
		Password:       stringField(body, "password"),
		RepeatPassword: stringField(body, "repeatPassword"),
		Profile:        profileOf(body),
	})
	s.recordFlow(auth.FlowRegister, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataResponse{Data: idData{ID: id}})
}

func (s *Server) handleResetPassword(c echo.Context) error {
	action := c.Param("action")
	if action != ResetActionEmail && action != ResetActionReset {
		return echo.ErrNotFound
	}
	body, err := decodeBody(c)
	if err != nil {
		return err
	}
	site := siteOf(c)
	ctx := c.Request().Context()

	if action == ResetActionEmail {
		err = site.Flows.Reset.RequestReset(ctx, auth.ResetRequest{Email: stringField(body, "email")})
		s.recordFlow(auth.FlowResetRequest, err)
	} else {
		err = site.Flows.Reset.ConfirmReset(ctx, auth.ResetConfirmation{
			Token:          stringField(body, "token"),
			Password:       stringField(body, "password"),
			RepeatPassword: stringField(body, "repeatPassword"),
		})
		s.recordFlow(auth.FlowResetConfirm, err)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emptyResponse{})
}

func (s *Server) recordFlow(flow string, err error) {
	if s.metrics == nil {
		return
	}
	result := observability.ResultOK
	if err != nil {
		result = string(auth.CodeOf(err))
	}
	s.metrics.RecordFlow(flow, result)
}

// decodeBody reads a JSON object. An empty body is an empty object.
func decodeBody(c echo.Context) (map[string]any, error) {
	body := map[string]any{}
	err := json.NewDecoder(c.Request().Body).Decode(&body)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		if body == nil {
			body = map[string]any{}
		}
		return body, nil
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, MessageBodyTooLarge).SetInternal(err)
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, MessageInvalidBody).SetInternal(err)
	}
}

// stringField returns body[key] when it is a string. Other types read as
// missing.
func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func profileOf(body map[string]any) map[string]any {
	profile := make(map[string]any, len(body))
	for k, v := range body {
		profile[k] = v
	}
	for _, k := range reservedFields {
		delete(profile, k)
	}
	return profile
}
