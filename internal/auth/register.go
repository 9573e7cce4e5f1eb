// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"errors"
)

// Registration is a new-account submission. Profile carries any extra
// fields the caller sent.
type Registration struct {
	Email          string
	Password       string
	RepeatPassword string
	Profile        map[string]any
}

// RegistrationFlow creates records with unique emails.
type RegistrationFlow struct {
	base
	baseURL       string
	notifications *NotificationConfig
}

// NewRegistrationFlow creates a RegistrationFlow. When cfg.Notifications is
// set it must be complete.
func NewRegistrationFlow(cfg Config) (*RegistrationFlow, error) {
	b, err := newBase(FlowRegister, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Notifications != nil {
		if err := cfg.Notifications.Validate(); err != nil {
			return nil, err
		}
	}
	return &RegistrationFlow{
		base:          b,
		baseURL:       cfg.BaseURL,
		notifications: cfg.Notifications,
	}, nil
}

// Execute validates reg, creates the record, and sends the register email
// when notifications are configured. It returns the new record id.
//
// A failed email does not undo the create: the record stays committed and
// the caller receives NOTIFICATION_FAILED.
func (f *RegistrationFlow) Execute(ctx context.Context, reg Registration) (string, error) {
	email := NormalizeEmail(reg.Email)
	if err := requireAll(
		requirement{email, CodeEmailRequired},
		requirement{reg.Password, CodePasswordRequired},
		requirement{reg.RepeatPassword, CodeRepeatPasswordRequired},
	); err != nil {
		return "", err
	}
	if reg.RepeatPassword != reg.Password {
		return "", newError(CodePasswordMismatch)
	}

	_, err := f.store.FindByEmail(ctx, f.tenant, email)
	switch {
	case err == nil:
		return "", newError(CodeAlreadyRegistered)
	case !errors.Is(err, ErrNotFound):
		return "", f.systemFault(ctx, CodeInternal, err, "operation", "find by email")
	}

	rec, err := f.store.Create(ctx, f.tenant, NewRecord{
		Email:    email,
		Password: reg.Password,
		Profile:  reg.Profile,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return "", wrapError(CodeAlreadyRegistered, err)
		}
		return "", f.systemFault(ctx, CodeInternal, err, "operation", "create")
	}
	f.logger.InfoContext(ctx, "record registered", "record_id", rec.Identifier())

	if f.notifications != nil {
		if err := f.sendWelcome(ctx, email, reg.Profile); err != nil {
			return "", f.systemFault(ctx, CodeNotificationFailed, err,
				"record_id", rec.Identifier(),
				"record_committed", true)
		}
	}

	return rec.Identifier(), nil
}

func (f *RegistrationFlow) sendWelcome(ctx context.Context, email string, profile map[string]any) error {
	fields := cloneProfile(profile)
	fields["email"] = email

	tmpl := f.notifications.Register
	body, err := tmpl.Render(RegisterEmailData{
		Fields:   fields,
		BaseURL:  f.baseURL,
		LoginURL: joinURL(f.baseURL, "/login"),
	})
	if err != nil {
		return err
	}
	//nolint:wrapcheck // notifier errors carry their own oops context
	return f.notifications.Notifier.Send(ctx, Message{
		To:       email,
		Subject:  tmpl.Subject,
		Body:     body,
		Template: tmpl.Name,
	})
}
