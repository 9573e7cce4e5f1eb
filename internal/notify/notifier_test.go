// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/mocks"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	err := NewLogNotifier(logger).Send(context.Background(), auth.Message{
		To: "a@b.com", Subject: "Hi", Body: "secret-link", Template: TemplateRegister,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@b.com"`)
	assert.Contains(t, buf.String(), `"template":"register"`)
	assert.NotContains(t, buf.String(), "secret-link", "body only at debug level")
}

type countingRecorder struct {
	counts map[[2]string]int
}

func (r *countingRecorder) RecordNotification(template, status string) {
	if r.counts == nil {
		r.counts = map[[2]string]int{}
	}
	r.counts[[2]string{template, status}]++
}

func TestInstrumented(t *testing.T) {
	inner := mocks.NewMockNotifier(t)
	inner.On("Send", mock.Anything, mock.MatchedBy(func(m auth.Message) bool { return m.To == "ok@b.com" })).
		Return(nil)
	inner.On("Send", mock.Anything, mock.MatchedBy(func(m auth.Message) bool { return m.To == "bad@b.com" })).
		Return(errors.New("smtp down"))

	rec := &countingRecorder{}
	n := Instrumented(inner, rec)

	require.NoError(t, n.Send(context.Background(), auth.Message{To: "ok@b.com", Template: TemplateRegister}))
	require.Error(t, n.Send(context.Background(), auth.Message{To: "bad@b.com", Template: TemplateResetPassword}))

	assert.Equal(t, 1, rec.counts[[2]string{TemplateRegister, StatusSent}])
	assert.Equal(t, 1, rec.counts[[2]string{TemplateResetPassword, StatusFailed}])
}

func TestInstrumented_NilRecorderReturnsInner(t *testing.T) {
	inner := NewLogNotifier(nil)
	assert.Same(t, inner, Instrumented(inner, nil))
}
