// Package urlscheme derives the reverse-proxy-facing URLs and routing labels
// for a workspace from its id and the configured domain. It is a pure
// function boundary: nothing here talks to the proxy, it only computes the
// strings the proxy is configured with.
package urlscheme

import (
	"fmt"
	"net"
	"strings"

	"github.com/cuemby/cradle/pkg/types"
)

// Role is one of the three internal service endpoints routed per workspace.
type Role string

const (
	RoleDesktop Role = "desktop"
	RoleEditor  Role = "editor"
	RoleWeb     Role = "web"
)

// RouterPriority is applied to every workspace path rule, above any
// catch-all route in the proxy.
const RouterPriority = 10

// Proto returns "http" when domain is localhost, a *.localhost name, or an
// IPv4/IPv6 literal; "https" (automatic TLS) otherwise.
func Proto(domain string) string {
	if domain == "localhost" || strings.HasSuffix(domain, ".localhost") {
		return "http"
	}
	if net.ParseIP(domain) != nil {
		return "http"
	}
	return "https"
}

// URL builds the full external URL for one role of a workspace.
func URL(domain, id string, role Role) string {
	return fmt.Sprintf("%s://%s/%s/%s", Proto(domain), domain, role, id)
}

// URLs builds the complete ServiceURLs triple for a workspace id.
func URLs(domain, id string) types.ServiceURLs {
	return types.ServiceURLs{
		Desktop: URL(domain, id, RoleDesktop),
		Editor:  URL(domain, id, RoleEditor),
		Web:     URL(domain, id, RoleWeb),
	}
}

// PathPrefix returns the router match path for a role, e.g. "/editor/abcd".
func PathPrefix(id string, role Role) string {
	return fmt.Sprintf("/%s/%s", role, id)
}

// StripPrefix returns the middleware prefix to remove from the request path
// before it reaches the workspace's internal port — identical to the match
// path, by construction.
func StripPrefix(id string, role Role) string {
	return PathPrefix(id, role)
}

// Labels is the set of routing labels the Orchestrator Adapter attaches to
// a newly created workspace service, for later extraction by the proxy's
// label-based configuration discovery.
type Labels struct {
	Domain string
	ID     string
	Rules  []RoleRule
}

// RoleRule is one path-prefix rule for a single internal port.
type RoleRule struct {
	Role        Role
	PathPrefix  string
	PathSlash   string
	StripPrefix string
	Priority    int
	TLSResolver string
}

// BuildLabels computes the full label set for a workspace, one rule per
// role, each with both the bare and trailing-slash path forms matched.
func BuildLabels(domain, id string) Labels {
	tlsResolver := ""
	if Proto(domain) == "https" {
		tlsResolver = "default"
	}

	roles := []Role{RoleDesktop, RoleEditor, RoleWeb}
	rules := make([]RoleRule, 0, len(roles))
	for _, r := range roles {
		prefix := PathPrefix(id, r)
		rules = append(rules, RoleRule{
			Role:        r,
			PathPrefix:  prefix,
			PathSlash:   prefix + "/",
			StripPrefix: prefix,
			Priority:    RouterPriority,
			TLSResolver: tlsResolver,
		})
	}

	return Labels{Domain: domain, ID: id, Rules: rules}
}
