// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/pkg/errutil"
)

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("TEST_ERROR").
		With("key", "value").
		Errorf("something failed")

	errutil.LogError(logger, "operation failed", err)

	entry := decodeLog(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "operation failed", entry["msg"])
	assert.Equal(t, "TEST_ERROR", entry["error_code"])
	require.IsType(t, map[string]any{}, entry["context"])
	assert.Equal(t, "value", entry["context"].(map[string]any)["key"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	entry := decodeLog(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "error_code")
}

func TestLogErrorContext_FindsWrappedOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := oops.Code("RECORD_LOOKUP_FAILED").With("tenant", "site-1").Errorf("connection reset")
	err := fmt.Errorf("flow: %w", inner)

	errutil.LogErrorContext(context.Background(), logger, "flow failed", err, "flow", "login")

	entry := decodeLog(t, &buf)
	assert.Equal(t, "RECORD_LOOKUP_FAILED", entry["error_code"])
	assert.Equal(t, "login", entry["flow"])
	assert.Contains(t, entry["error"], "connection reset")
}

func TestLogErrorContext_NilLoggerUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	errutil.LogErrorContext(context.Background(), nil, "fallback", errors.New("boom"))

	entry := decodeLog(t, &buf)
	assert.Equal(t, "fallback", entry["msg"])
}
