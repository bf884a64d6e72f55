package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// KeyFunc extracts the client identity used as the rate limit key.
type KeyFunc func(r *http.Request) string

// HeaderKeyFunc keys on a header value, typically the API key, falling back
// to the client address resolved by ip. A nil ip means RemoteIP.
func HeaderKeyFunc(header string, ip KeyFunc) KeyFunc {
	if ip == nil {
		ip = RemoteIP
	}
	return func(r *http.Request) string {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
		return ip(r)
	}
}

// IPKeyFunc keys on the connection address.
func IPKeyFunc(r *http.Request) string {
	return RemoteIP(r)
}

// RemoteIP returns the connection address. Forwarding headers are ignored.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

// ClientIPResolver honors X-Forwarded-For and X-Real-IP only on connections
// from trusted proxies. Without trusted proxies it is RemoteIP.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxies given as addresses or CIDRs.
func NewClientIPResolver(trusted []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, t := range trusted {
		p, err := parsePrefix(t)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", t, err)
		}
		res.trusted = append(res.trusted, p)
	}
	return res, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (res *ClientIPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP walks the forwarding chain from the nearest hop and returns the
// first address that is not a trusted proxy.
func (res *ClientIPResolver) ClientIP(r *http.Request) string {
	remote := RemoteIP(r)
	if len(res.trusted) == 0 || !res.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !res.isTrusted(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}
