package trust

import (
	"net"
	"strings"
)

// ResolveOrigin derives the effective request origin used for generating
// absolute links. Precedence: configured fixed domain, Referer header,
// X-Forwarded-Proto/X-Forwarded-Host pair, bare Host header, empty. The
// value is never used for security decisions.
func ResolveOrigin(cfg Config, r RequestInfo) string {
	if cfg != nil && cfg.GetDomain() != "" {
		return cfg.GetDomain()
	}

	if referer := r.Referer(); referer != "" {
		return referer
	}

	proto := r.Header("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}

	host := r.Header("X-Forwarded-Host")
	if host == "" {
		host = r.Header("Host")
	}
	if host == "" {
		return ""
	}

	return proto + "://" + host
}

// ClientOriginResolver derives the caller's IP address for logging and
// notification context. It is advisory: the value never feeds an
// authorization decision.
type ClientOriginResolver struct {
	header string
	logger Logger
}

// NewClientOriginResolver configures the resolver with the trusted proxy
// header name from Config; empty disables header parsing entirely.
func NewClientOriginResolver(cfg Config, logger Logger) *ClientOriginResolver {
	if logger == nil {
		logger = defLogger{}
	}
	header := ""
	if cfg != nil {
		header = cfg.GetIPHeader()
	}
	return &ClientOriginResolver{header: header, logger: logger}
}

// Resolve picks the client IP: the first comma-separated token of the
// trusted header when present and well-formed, else the transport peer
// address, else the unspecified placeholder.
func (cr *ClientOriginResolver) Resolve(r RequestInfo, remoteAddr string) net.IP {
	if cr.header != "" {
		if raw := r.Header(cr.header); raw != "" {
			first := raw
			if idx := strings.Index(raw, ","); idx >= 0 {
				first = raw[:idx]
			}
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
			cr.logger.Warn("'%s' header is malformed: %s", cr.header, raw)
		}
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return ip
	}

	return net.IPv4zero
}
