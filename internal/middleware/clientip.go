package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var forwardingHeaders = []string{"X-Forwarded-For", "X-Real-IP", "Client-IP"}

// reservedPrefixes are special-purpose ranges that never identify a client
// on the public internet (IANA IPv4/IPv6 special-purpose registries).
var reservedPrefixes = mustPrefixes(
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"64:ff9b:1::/48",
	"100::/64",
	"2001::/23",
	"2001:db8::/32",
	"3fff::/20",
)

// ClientIP returns the first public address found in the forwarding headers,
// falling back to the peer address.
func ClientIP(r *http.Request) string {
	for _, h := range forwardingHeaders {
		for _, candidate := range strings.Split(r.Header.Get(h), ",") {
			addr, err := netip.ParseAddr(strings.TrimSpace(candidate))
			if err == nil && isPublic(addr) {
				return addr.Unmap().String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}
