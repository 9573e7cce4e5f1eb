// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

// ResetRequest asks for a reset link to be emailed.
type ResetRequest struct {
	Email string
}

// ResetConfirmation consumes a reset token to set a new password.
type ResetConfirmation struct {
	Token          string
	Password       string
	RepeatPassword string
}

// PasswordResetFlow issues reset tokens by email and consumes them.
type PasswordResetFlow struct {
	request base
	confirm base

	tokens        TokenService
	replay        ReplayGuard
	baseURL       string
	notifications *NotificationConfig
}

// NewPasswordResetFlow creates a PasswordResetFlow. cfg.Tokens is required.
// cfg.Notifications may be nil, in which case RequestReset reports
// MISCONFIGURED and ConfirmReset still works.
func NewPasswordResetFlow(cfg Config) (*PasswordResetFlow, error) {
	req, err := newBase(FlowResetRequest, cfg)
	if err != nil {
		return nil, err
	}
	conf, err := newBase(FlowResetConfirm, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Tokens == nil {
		return nil, oops.Code("FLOW_CONFIG_INVALID").With("flow", "reset").Errorf("token service is required")
	}
	if cfg.Notifications != nil {
		if err := cfg.Notifications.Validate(); err != nil {
			return nil, err
		}
	}
	return &PasswordResetFlow{
		request:       req,
		confirm:       conf,
		tokens:        cfg.Tokens,
		replay:        cfg.Replay,
		baseURL:       cfg.BaseURL,
		notifications: cfg.Notifications,
	}, nil
}

// RequestReset emails a reset link to the record registered under
// req.Email. The token only travels through the notifier.
func (f *PasswordResetFlow) RequestReset(ctx context.Context, req ResetRequest) error {
	b := f.request

	email := NormalizeEmail(req.Email)
	if email == "" {
		return newError(CodeEmailRequired)
	}
	if f.notifications == nil {
		return b.systemFault(ctx, CodeMisconfigured,
			oops.Code("NOTIFICATIONS_DISABLED").Errorf("site has no email configuration"))
	}

	rec, err := b.store.FindByEmail(ctx, b.tenant, email)
	if err != nil {
		return b.lookupFailure(ctx, err, CodeNotRegistered, "operation", "find by email")
	}

	expiresIn := f.notifications.resetExpiry()
	token, err := f.tokens.Issue(expiresIn, TokenPayload{SubjectID: rec.Identifier()})
	if err != nil {
		return b.systemFault(ctx, CodeInternal, err, "operation", "issue token", "record_id", rec.Identifier())
	}

	tmpl := f.notifications.ResetPassword
	body, err := tmpl.Render(ResetPasswordEmailData{
		Fields:    rec.Fields(),
		BaseURL:   f.baseURL,
		Token:     token,
		ResetURL:  resetURL(f.baseURL, token),
		ExpiresIn: expiresIn,
	})
	if err != nil {
		return b.systemFault(ctx, CodeMisconfigured, err, "record_id", rec.Identifier())
	}

	if err := f.notifications.Notifier.Send(ctx, Message{
		To:       email,
		Subject:  tmpl.Subject,
		Body:     body,
		Template: tmpl.Name,
	}); err != nil {
		return b.systemFault(ctx, CodeNotificationFailed, err, "record_id", rec.Identifier())
	}

	b.logger.InfoContext(ctx, "reset link sent", "record_id", rec.Identifier(), "expires_in", expiresIn.String())
	return nil
}

// ConfirmReset sets a new password for the record a valid token points at.
// The token is checked before the passwords so a bad link fails first.
func (f *PasswordResetFlow) ConfirmReset(ctx context.Context, in ResetConfirmation) error {
	b := f.confirm

	if in.Token == "" {
		return newError(CodeTokenRequired)
	}
	if !f.tokens.Verify(in.Token) {
		return newError(CodeTokenInvalid)
	}
	if err := requireAll(
		requirement{in.Password, CodePasswordRequired},
		requirement{in.RepeatPassword, CodeRepeatPasswordRequired},
	); err != nil {
		return err
	}
	if in.RepeatPassword != in.Password {
		return newError(CodePasswordMismatch)
	}

	payload, err := f.tokens.Decode(in.Token)
	if err != nil || payload.SubjectID == "" {
		return wrapError(CodeTokenInvalid, err)
	}

	rec, err := b.store.FindByID(ctx, b.tenant, payload.SubjectID)
	if err != nil {
		return b.lookupFailure(ctx, err, CodeTokenInvalid, "operation", "find by id")
	}

	cred, ok := rec.(CredentialRecord)
	if !ok {
		return b.systemFault(ctx, CodeIntegrity,
			oops.Code("RECORD_NOT_CREDENTIAL").Errorf("record type does not support password changes"),
			"record_id", rec.Identifier())
	}

	if f.replay != nil {
		first, err := f.replay.Consume(ctx, payload.TokenID, payload.ExpiresAt)
		if err != nil {
			return b.systemFault(ctx, CodeInternal, err, "operation", "consume token", "record_id", rec.Identifier())
		}
		if !first {
			b.logger.WarnContext(ctx, "reset token replayed", "record_id", rec.Identifier(), "token_id", payload.TokenID)
			return newError(CodeTokenInvalid)
		}
	}

	cred.SetPassword(in.Password)
	if err := b.store.Save(ctx, cred); err != nil {
		return b.systemFault(ctx, CodeInternal, err, "operation", "save", "record_id", rec.Identifier())
	}

	b.logger.InfoContext(ctx, "password reset", "record_id", rec.Identifier())
	return nil
}
