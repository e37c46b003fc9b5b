package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultTrustedProxies are the loopback and private ranges a reverse proxy
// usually runs in.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// IPResolver extracts the client address. Forwarding headers are honoured
// only when the direct peer is a trusted proxy.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses the trusted proxy CIDRs.
func NewIPResolver(cidrs ...string) (*IPResolver, error) {
	r := &IPResolver{}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy CIDR %q: %w", cidr, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

// MustIPResolver is NewIPResolver for static lists.
func MustIPResolver(cidrs ...string) *IPResolver {
	r, err := NewIPResolver(cidrs...)
	if err != nil {
		panic(err)
	}
	return r
}

func (res *IPResolver) isTrustedProxy(ip net.IP) bool {
	for _, network := range res.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the real client address of r.
func (res *IPResolver) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !res.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}
