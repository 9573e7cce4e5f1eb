// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package notify

import (
	"context"

	"github.com/credgate/credgate/internal/auth"
)

// Send statuses recorded by Instrumented.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Recorder counts send attempts. *observability.Metrics implements it.
type Recorder interface {
	RecordNotification(template, status string)
}

type instrumented struct {
	next     auth.Notifier
	recorder Recorder
}

// Instrumented wraps next so every send is counted by template and status.
func Instrumented(next auth.Notifier, recorder Recorder) auth.Notifier {
	if recorder == nil {
		return next
	}
	return &instrumented{next: next, recorder: recorder}
}

func (n *instrumented) Send(ctx context.Context, msg auth.Message) error {
	err := n.next.Send(ctx, msg)
	status := StatusSent
	if err != nil {
		status = StatusFailed
	}
	n.recorder.RecordNotification(msg.Template, status)
	return err //nolint:wrapcheck // decorator passes the inner error through
}
