package ssrf

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"OCRService/pkg/response"

	"golang.org/x/net/idna"
)

// DefaultBlockedPrefixes are the address ranges a fetch may never reach.
var DefaultBlockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.169.254/32"),
	netip.MustParsePrefix("fd00:ec2::254/128"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("ff00::/8"),
}

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"localhost.localdomain":    true,
	"metadata.google.internal": true,
}

// Resolver is the subset of *net.Resolver the guard needs.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

type IGuard interface {
	Check(ctx context.Context, rawURL string) error
	CheckURL(ctx context.Context, u *url.URL) error
	CheckAddr(addr netip.Addr) error
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Guard struct {
	resolver   Resolver
	blocked    []netip.Prefix
	dnsTimeout time.Duration
	dialer     *net.Dialer
}

type Option func(*Guard)

func WithResolver(r Resolver) Option {
	return func(g *Guard) { g.resolver = r }
}

// WithBlockedPrefixes replaces the default deny-list.
func WithBlockedPrefixes(prefixes []netip.Prefix) Option {
	return func(g *Guard) { g.blocked = prefixes }
}

func WithDNSTimeout(d time.Duration) Option {
	return func(g *Guard) { g.dnsTimeout = d }
}

func New(opts ...Option) *Guard {
	g := &Guard{
		resolver:   net.DefaultResolver,
		blocked:    DefaultBlockedPrefixes,
		dnsTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.dialer = &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   g.control,
	}

	return g
}

// Check validates rawURL and every address its host resolves to. A host that
// resolves to several addresses is rejected if any one of them is blocked.
func (g *Guard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return response.Validation("invalid URL: %v", err)
	}
	return g.CheckURL(ctx, u)
}

func (g *Guard) CheckURL(ctx context.Context, u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return response.Validation("invalid URL scheme %q: only http and https are allowed", u.Scheme)
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return err
	}

	if blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return response.SSRFBlocked("access to host %s is not allowed", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return g.CheckAddr(addr)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.dnsTimeout)
	defer cancel()

	addrs, err := g.resolver.LookupNetIP(lookupCtx, "ip", host)
	if err != nil {
		if errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			return response.FetchTimeout("resolving %s timed out", host)
		}
		return response.FetchFailed("resolving %s: %v", host, err)
	}
	if len(addrs) == 0 {
		return response.FetchFailed("host %s has no addresses", host)
	}

	for _, addr := range addrs {
		if err := g.CheckAddr(addr); err != nil {
			return err
		}
	}

	return nil
}

func (g *Guard) CheckAddr(addr netip.Addr) error {
	addr = addr.Unmap().WithZone("")
	for _, prefix := range g.blocked {
		if prefix.Contains(addr) {
			return response.SSRFBlocked("access to address %s is not allowed", addr)
		}
	}
	return nil
}

// DialContext dials through the guard: the connection is refused if the
// address actually being connected to is blocked.
func (g *Guard) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return g.dialer.DialContext(ctx, network, address)
}

func (g *Guard) control(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return response.SSRFBlocked("unparseable dial address %s", address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return response.SSRFBlocked("unparseable dial address %s", address)
	}
	return g.CheckAddr(addr)
}

func normalizeHost(host string) (string, error) {
	if host == "" {
		return "", response.Validation("invalid URL: missing hostname")
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	if _, err := netip.ParseAddr(host); err == nil {
		return host, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", response.Validation("invalid hostname %q: %v", host, err)
	}
	return ascii, nil
}
