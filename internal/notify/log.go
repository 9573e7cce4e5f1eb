// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package notify delivers credgate emails: a logging notifier for
// development, an SMTP notifier, the embedded default templates and a
// metrics decorator.
package notify

import (
	"context"
	"log/slog"

	"github.com/credgate/credgate/internal/auth"
)

// LogNotifier writes messages to a logger instead of sending them. The body
// is logged at debug level only.
type LogNotifier struct {
	logger *slog.Logger
}

var _ auth.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// Send implements auth.Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg auth.Message) error {
	n.logger.InfoContext(ctx, "email not sent, log notifier in use",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template)
	n.logger.DebugContext(ctx, "email body", "template", msg.Template, "body", msg.Body)
	return nil
}
