package auth

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

const unknownClient = "unknown"

// ClientKeyResolver derives the rate-limit key for a request: the peer
// address, or the nearest untrusted hop of X-Forwarded-For when the peer is
// a trusted proxy.
type ClientKeyResolver struct {
	trusted []*net.IPNet
}

// NewClientKeyResolver creates a resolver trusting the given CIDRs or bare IPs
func NewClientKeyResolver(trustedProxies []string) (*ClientKeyResolver, error) {
	nets := make([]*net.IPNet, 0, len(trustedProxies))
	for _, entry := range trustedProxies {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		nets = append(nets, network)
	}
	return &ClientKeyResolver{trusted: nets}, nil
}

// Resolve returns the client key for r
func (c *ClientKeyResolver) Resolve(r *http.Request) string {
	peer := extractClientIP(r.RemoteAddr)
	if peer == "" {
		return unknownClient
	}
	if !c.isTrusted(peer) {
		return peer
	}

	// Walk right to left: the rightmost entries were appended by our proxies
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			break
		}
		if !c.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (c *ClientKeyResolver) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// extractClientIP extracts the client IP address from RemoteAddr
func extractClientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	// No port: take it as is, minus IPv6 brackets
	return strings.Trim(remoteAddr, "[]")
}
