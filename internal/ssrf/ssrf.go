// Package ssrf guards outbound requests against server-side request forgery.
// It rejects IP literals in private and reserved ranges, localhost hostnames,
// and hostnames whose DNS answers include any blocked address. Checking every
// resolved A/AAAA record is the defense against DNS rebinding.
package ssrf

import (
	"context"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// blockedV4 holds the exact IPv4 ranges refused by the guard.
var blockedV4 = mustPrefixes(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"255.255.255.255/32",
)

// blockedV6 holds the IPv6 ranges refused by the guard. Loopback and the
// unspecified address are handled separately.
var blockedV6 = mustPrefixes(
	"fe80::/10",
	"fc00::/7",
	"ff00::/8",
	"2001:db8::/32",
	"100::/64",
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// IsBlockedIP reports whether an address falls in a private or reserved
// range. IPv4-mapped IPv6 addresses are unmapped and checked against the
// IPv4 rules.
func IsBlockedIP(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.Is4() {
		for _, p := range blockedV4 {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	if addr == netip.IPv6Loopback() || addr == netip.IPv6Unspecified() {
		return true
	}
	for _, p := range blockedV6 {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS lookup for tests.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates target hosts before any socket is opened.
type Guard struct {
	// BlockPrivate enables the private/reserved range checks. When false
	// only the allowlist (if configured) applies.
	BlockPrivate bool

	// Allowlist, when non-empty, restricts fetches to hostnames equal to an
	// entry or ending in "." + entry.
	Allowlist []string

	// Resolver defaults to net.DefaultResolver.
	Resolver Resolver
}

// New returns a guard with private-range blocking enabled.
func New(allowlist []string) *Guard {
	return &Guard{BlockPrivate: true, Allowlist: allowlist}
}

func (g *Guard) resolver() Resolver {
	if g.Resolver != nil {
		return g.Resolver
	}
	return net.DefaultResolver
}

// CheckURL validates the host of a parsed URL. It is called once per redirect
// hop, before the request for that hop is issued.
func (g *Guard) CheckURL(ctx context.Context, u *url.URL) error {
	return g.CheckHost(ctx, u.Hostname())
}

// CheckHost validates a hostname or IP literal.
func (g *Guard) CheckHost(ctx context.Context, host string) error {
	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return werrors.Newf(werrors.CodeSSRFBlocked, "host %q is localhost", host)
	}

	if len(g.Allowlist) > 0 && !g.allowlisted(lower) {
		return werrors.Newf(werrors.CodeSSRFBlocked, "host %q is not in the domain allowlist", host).
			WithDetail("reason", "allowlist")
	}

	if !g.BlockPrivate {
		return nil
	}

	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		if IsBlockedIP(addr) {
			return werrors.Newf(werrors.CodeSSRFBlocked, "address %s is in a blocked range", addr)
		}
		return nil
	}

	addrs, err := g.resolver().LookupIPAddr(ctx, lower)
	if err != nil {
		e := werrors.Wrap(werrors.CodeFetchError, err)
		e.Message = "DNS resolution failed for " + host
		return e
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		if IsBlockedIP(addr) {
			return werrors.Newf(werrors.CodeSSRFBlocked, "host %q resolves to blocked address %s", host, addr)
		}
	}
	return nil
}

// allowlisted reports whether host matches an allowlist entry exactly or as
// a subdomain.
func (g *Guard) allowlisted(host string) bool {
	for _, entry := range g.Allowlist {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}
