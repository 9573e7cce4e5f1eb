// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
	// Template names the template that produced Body, for metrics and logs.
	Template string
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// EmailTemplate pairs a subject line with an HTML body template.
type EmailTemplate struct {
	Name    string
	Subject string
	Body    *template.Template
}

// Render executes the body template against data.
func (t *EmailTemplate) Render(data any) (string, error) {
	if t == nil || t.Body == nil {
		return "", oops.Code("TEMPLATE_MISSING").Errorf("email template is not configured")
	}
	var buf bytes.Buffer
	if err := t.Body.Execute(&buf, data); err != nil {
		return "", oops.Code("TEMPLATE_RENDER_FAILED").With("template", t.Name).Wrap(err)
	}
	return buf.String(), nil
}

// NotificationConfig enables outbound email for a site. A nil config means
// registration sends nothing and reset requests fail as MISCONFIGURED.
type NotificationConfig struct {
	Notifier           Notifier
	Register           *EmailTemplate
	ResetPassword      *EmailTemplate
	ResetLinkExpiresIn time.Duration
}

// Validate checks that both templates and a notifier are present.
func (c *NotificationConfig) Validate() error {
	if c.Notifier == nil {
		return oops.Code("NOTIFICATION_CONFIG_INVALID").Errorf("notifier is required")
	}
	if c.Register == nil || c.Register.Body == nil {
		return oops.Code("NOTIFICATION_CONFIG_INVALID").Errorf("register email template is required")
	}
	if c.ResetPassword == nil || c.ResetPassword.Body == nil {
		return oops.Code("NOTIFICATION_CONFIG_INVALID").Errorf("reset password email template is required")
	}
	if c.ResetLinkExpiresIn < 0 {
		return oops.Code("NOTIFICATION_CONFIG_INVALID").Errorf("reset link expiry must be positive")
	}
	return nil
}

func (c *NotificationConfig) resetExpiry() time.Duration {
	if c.ResetLinkExpiresIn <= 0 {
		return DefaultResetLinkExpiry
	}
	return c.ResetLinkExpiresIn
}

// RegisterEmailData is the data passed to a register template.
type RegisterEmailData struct {
	// Fields holds the submitted email and profile fields.
	Fields   map[string]any
	BaseURL  string
	LoginURL string
}

// ResetPasswordEmailData is the data passed to a reset-password template.
type ResetPasswordEmailData struct {
	// Fields holds the stored record's email and profile fields.
	Fields    map[string]any
	BaseURL   string
	Token     string
	ResetURL  string
	ExpiresIn time.Duration
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func resetURL(base, token string) string {
	return joinURL(base, "/reset-password?token="+url.QueryEscape(token))
}
