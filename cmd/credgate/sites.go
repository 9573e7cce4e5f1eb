// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/httpapi"
	"github.com/credgate/credgate/internal/notify"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/internal/token"
)

type siteDeps struct {
	store   auth.RecordStore
	hasher  auth.PasswordHasher
	replay  auth.ReplayGuard
	metrics *observability.Metrics
	logger  *slog.Logger
}

// buildSites wires each configured site to its own token issuer, templates
// and notifier over the shared record store.
func buildSites(cfg *config.Config, d siteDeps) ([]*httpapi.Site, error) {
	sites := make([]*httpapi.Site, 0, len(cfg.Sites))
	for _, sc := range cfg.Sites {
		tokens, err := token.NewJWTService(token.Config{
			Secret: []byte(cfg.Token.Secret),
			Issuer: token.DefaultIssuer + "/" + sc.Name,
		})
		if err != nil {
			return nil, err
		}

		flowCfg := auth.Config{
			Tenant:  auth.Tenant{ID: sc.Name, Collection: sc.Collection},
			Store:   d.store,
			Tokens:  tokens,
			BaseURL: sc.BaseURL,
			Replay:  d.replay,
			Hasher:  d.hasher,
			Logger:  d.logger.With("site", sc.Name),
		}
		if sc.Email != nil {
			flowCfg.Notifications, err = notifications(cfg, sc, d)
			if err != nil {
				return nil, oops.With("site", sc.Name).Wrap(err)
			}
		}

		flows, err := auth.NewFlows(flowCfg)
		if err != nil {
			return nil, oops.With("site", sc.Name).Wrap(err)
		}
		site, err := httpapi.NewSite(sc.Name, sc.APIBasePath, sc.Hosts, flows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func notifications(cfg *config.Config, sc config.SiteConfig, d siteDeps) (*auth.NotificationConfig, error) {
	email := sc.Email
	register, err := notify.LoadTemplate(notify.TemplateRegister, email.Register.Subject, email.Register.Template)
	if err != nil {
		return nil, err
	}
	reset, err := notify.LoadTemplate(notify.TemplateResetPassword, email.ResetPassword.Subject, email.ResetPassword.Template)
	if err != nil {
		return nil, err
	}

	var notifier auth.Notifier
	if cfg.SMTP.Host == "" {
		notifier = notify.NewLogNotifier(d.logger.With("site", sc.Name))
	} else {
		from := email.From
		if from == "" {
			from = cfg.SMTP.From
		}
		notifier, err = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     from,
		})
		if err != nil {
			return nil, err
		}
	}
	if d.metrics != nil {
		notifier = notify.Instrumented(notifier, d.metrics)
	}

	return &auth.NotificationConfig{
		Notifier:           notifier,
		Register:           register,
		ResetPassword:      reset,
		ResetLinkExpiresIn: email.LinkExpiry(),
	}, nil
}
