// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package notify

import (
	"embed"
	"html/template"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// Template names, also used as metric labels.
const (
	TemplateRegister      = "register"
	TemplateResetPassword = "reset-password"
)

// Default subjects.
const (
	DefaultRegisterSubject      = "Registration complete"
	DefaultResetPasswordSubject = "Reset your password"
)

//go:embed templates/*.html
var templatesFS embed.FS

var defaultSubjects = map[string]string{
	TemplateRegister:      DefaultRegisterSubject,
	TemplateResetPassword: DefaultResetPasswordSubject,
}

// LoadTemplate returns the named email template. An empty path selects the
// embedded default body; an empty subject selects the default subject.
func LoadTemplate(name, subject, path string) (*auth.EmailTemplate, error) {
	defaultSubject, known := defaultSubjects[name]
	if !known {
		return nil, oops.Code("TEMPLATE_UNKNOWN").With("template", name).Errorf("unknown email template %q", name)
	}
	if subject == "" {
		subject = defaultSubject
	}

	var (
		body *template.Template
		err  error
	)
	if path == "" {
		body, err = template.New(name+".html").ParseFS(templatesFS, "templates/"+name+".html")
	} else {
		body, err = parseFile(name, path)
	}
	if err != nil {
		return nil, oops.Code("TEMPLATE_PARSE_FAILED").
			With("template", name).
			With("path", path).
			Wrap(err)
	}

	return &auth.EmailTemplate{Name: name, Subject: subject, Body: body}, nil
}

func parseFile(name, path string) (*template.Template, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by LoadTemplate
	}
	return template.New(name + ".html").Option("missingkey=zero").Parse(string(src)) //nolint:wrapcheck // wrapped by LoadTemplate
}
