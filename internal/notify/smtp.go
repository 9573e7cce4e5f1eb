// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// SMTPConfig configures an SMTPNotifier.
type SMTPConfig struct {
	Host string
	Port int
	// Username enables PLAIN auth when set.
	Username string
	Password string
	// From is the sender address, optionally with a display name.
	From string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends HTML email over SMTP.
type SMTPNotifier struct {
	addr  string
	host  string
	auth  smtp.Auth
	from  *mail.Address
	send  sendFunc
	clock clockwork.Clock
}

var _ auth.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier validates cfg and creates the notifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, oops.Code("SMTP_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, oops.Code("SMTP_CONFIG_INVALID").With("from", cfg.From).Wrapf(err, "invalid from address")
	}

	n := &SMTPNotifier{
		addr:  net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:  cfg.Host,
		from:  from,
		send:  smtp.SendMail,
		clock: clockwork.NewRealClock(),
	}
	if cfg.Username != "" {
		n.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return n, nil
}

// Send implements auth.Notifier. net/smtp has no context support, so ctx is
// only checked before dialing.
func (n *SMTPNotifier) Send(ctx context.Context, msg auth.Message) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("SMTP_SEND_CANCELLED").Wrap(err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return oops.Code("SMTP_RECIPIENT_INVALID").With("to", msg.To).Wrap(err)
	}

	body, err := n.compose(to, msg)
	if err != nil {
		return err
	}

	if err := n.send(n.addr, n.auth, n.from.Address, []string{to.Address}, body); err != nil {
		return oops.Code("SMTP_SEND_FAILED").
			With("addr", n.addr).
			With("template", msg.Template).
			Wrap(err)
	}
	return nil
}

// compose renders an RFC 5322 message with a quoted-printable HTML body.
func (n *SMTPNotifier) compose(to *mail.Address, msg auth.Message) ([]byte, error) {
	var buf bytes.Buffer
	headers := [][2]string{
		{"From", n.from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", n.clock.Now().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), n.host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="utf-8"`},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, h := range headers {
		buf.WriteString(h[0] + ": " + stripNewlines(h[1]) + "\r\n")
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, oops.Code("SMTP_ENCODE_FAILED").Wrap(err)
	}
	if err := qp.Close(); err != nil {
		return nil, oops.Code("SMTP_ENCODE_FAILED").Wrap(err)
	}
	return buf.Bytes(), nil
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
