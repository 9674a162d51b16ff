// Package endpoint computes the ordered list of backend base URLs the client
// may talk to.
package endpoint

import (
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

// Well-known defaults.
const (
	AndroidEmulatorURL = "http://10.0.2.2:8000"
	LocalhostURL       = "http://localhost:8000"
	ProductionURL      = "https://citizen-services-backend.onrender.com"
)

// Hosted web builds are served from "<name>-mobile.<domain>" and talk to
// "<name>-backend.<domain>".
const (
	webHostSegment     = "-mobile"
	backendHostSegment = "-backend"
)

// Env carries the environment-provided endpoint overrides.
type Env struct {
	// URL is the single base URL override.
	URL string
	// URLs is the comma-separated list override.
	URLs string
	// Production selects the hosted backend as the platform fallback.
	Production bool
}

// EnvFromConfig extracts the endpoint inputs from the application config.
func EnvFromConfig(cfg *config.Config) Env {
	return Env{
		URL:        cfg.API.URL,
		URLs:       cfg.API.URLs,
		Production: !cfg.IsDevelopment(),
	}
}

// Resolve returns the candidate base URLs in priority order. The result is
// never empty, has trailing slashes stripped and contains no duplicates.
func Resolve(env Env, platform, runtimeHost string) []string {
	var raw []string

	for _, u := range strings.Split(env.URLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			raw = append(raw, u)
		}
	}

	if u := strings.TrimSpace(env.URL); u != "" {
		raw = append(raw, u)
	}

	if platform == config.PlatformWeb {
		if derived := deriveFromHost(runtimeHost); derived != "" {
			raw = append(raw, derived)
		}
	}

	raw = append(raw, platformDefault(env, platform, runtimeHost))

	return dedupe(raw)
}

// deriveFromHost maps a hosted web client host to its backend host. It
// returns "" when the host does not follow the naming convention.
func deriveFromHost(runtimeHost string) string {
	if runtimeHost == "" {
		return ""
	}

	scheme := "https"
	host := runtimeHost
	if u, err := url.Parse(runtimeHost); err == nil && u.Scheme != "" && u.Host != "" {
		scheme = u.Scheme
		host = u.Host
	}

	replaced := strings.Replace(host, webHostSegment, backendHostSegment, 1)
	if replaced == host {
		return ""
	}
	return scheme + "://" + replaced
}

func platformDefault(env Env, platform, runtimeHost string) string {
	switch {
	case platform == config.PlatformAndroid:
		return AndroidEmulatorURL
	case platform == config.PlatformWeb && isLocalhost(runtimeHost):
		return LocalhostURL
	case env.Production:
		return ProductionURL
	default:
		return LocalhostURL
	}
}

func isLocalhost(runtimeHost string) bool {
	host := runtimeHost
	if u, err := url.Parse(runtimeHost); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = normalize(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func normalize(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// Resolver holds the candidates computed once at startup.
type Resolver struct {
	candidates []string
}

// NewResolver resolves the candidates for the given configuration.
func NewResolver(cfg *config.Config, logger *zap.Logger) *Resolver {
	candidates := Resolve(EnvFromConfig(cfg), cfg.Platform, cfg.RuntimeHost)
	logger.Named("endpoint").Debug("Resolved API candidates",
		zap.Strings("candidates", candidates),
		zap.String("platform", cfg.Platform),
	)
	return &Resolver{candidates: candidates}
}

// Primary returns the base URL used for requests.
func (r *Resolver) Primary() string {
	return r.candidates[0]
}

// Candidates returns a copy of all candidates in priority order.
func (r *Resolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}
