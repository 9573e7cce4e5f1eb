// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package httpapi

import (
	"net"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// DefaultSite receives requests whose host matches no other site.
const DefaultSite = "default"

// Site is one tenant served under its own API base path.
type Site struct {
	Name     string
	BasePath string
	Flows    *auth.Flows

	patterns []string
	hosts    []glob.Glob
}

// NewSite compiles the host patterns for a site. Patterns use glob syntax
// with '.' as separator, so "*.example.com" matches one label.
func NewSite(name, basePath string, hosts []string, flows *auth.Flows) (*Site, error) {
	if name == "" {
		return nil, oops.Code("SITE_INVALID").Errorf("site name is required")
	}
	if flows == nil {
		return nil, oops.Code("SITE_INVALID").With("site", name).Errorf("site flows are required")
	}
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	s := &Site{Name: name, BasePath: strings.TrimRight(basePath, "/"), Flows: flows}
	for _, h := range hosts {
		pattern := strings.ToLower(strings.TrimSpace(h))
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, oops.Code("SITE_HOST_INVALID").With("site", name).With("pattern", h).Wrap(err)
		}
		s.patterns = append(s.patterns, pattern)
		s.hosts = append(s.hosts, g)
	}
	return s, nil
}

func (s *Site) matches(host string) bool {
	for _, g := range s.hosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// siteTable resolves a request host to a site. Sites are tried in
// configuration order.
type siteTable struct {
	sites    []*Site
	fallback *Site
}

func newSiteTable(sites []*Site) (*siteTable, error) {
	t := &siteTable{}
	seen := make(map[string]bool, len(sites))
	for _, s := range sites {
		if seen[s.Name] {
			return nil, oops.Code("SITE_DUPLICATE").With("site", s.Name).Errorf("site %q configured twice", s.Name)
		}
		seen[s.Name] = true
		t.sites = append(t.sites, s)
		if s.Name == DefaultSite {
			t.fallback = s
		}
	}
	return t, nil
}

func (t *siteTable) resolve(host string) *Site {
	host = hostname(host)
	for _, s := range t.sites {
		if s.matches(host) {
			return s
		}
	}
	return t.fallback
}

// basePaths lists each distinct base path once.
func (t *siteTable) basePaths() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range t.sites {
		if !seen[s.BasePath] {
			seen[s.BasePath] = true
			out = append(out, s.BasePath)
		}
	}
	return out
}

func hostname(hostport string) string {
	host := strings.TrimSpace(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
