package ssrf

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"OCRService/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	addrs map[string][]string
	delay time.Duration
}

func (f *fakeResolver) LookupNetIP(ctx context.Context, _, host string) ([]netip.Addr, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	raw, ok := f.addrs[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	out := make([]netip.Addr, 0, len(raw))
	for _, r := range raw {
		out = append(out, netip.MustParseAddr(r))
	}
	return out, nil
}

func newTestGuard(addrs map[string][]string) *Guard {
	return New(WithResolver(&fakeResolver{addrs: addrs}))
}

func TestCheckRejectsBlockedLiterals(t *testing.T) {
	g := newTestGuard(nil)

	urls := []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://127.0.0.1/",
		"http://127.8.9.10:8080/x",
		"http://10.1.2.3/",
		"http://172.16.0.1/",
		"http://172.31.255.255/",
		"http://192.168.1.1/",
		"http://169.254.10.10/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://[fe80::1]/",
		"http://[fd00:ec2::254]/",
		"http://[::ffff:127.0.0.1]/",
		"http://[::ffff:10.0.0.1]/",
		"https://LOCALHOST/",
		"http://api.localhost/",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			err := g.Check(context.Background(), u)
			require.Error(t, err)
			assert.Equal(t, response.CodeSSRFBlocked, response.CodeOf(err))
		})
	}
}

func TestCheckAllowsPublicAddresses(t *testing.T) {
	g := newTestGuard(map[string][]string{
		"images.example.com": {"93.184.216.34", "2606:2800:220:1::1"},
	})

	assert.NoError(t, g.Check(context.Background(), "https://images.example.com/a.png"))
	assert.NoError(t, g.Check(context.Background(), "http://8.8.8.8/a.png"))
	assert.NoError(t, g.Check(context.Background(), "http://172.32.0.1/a.png"))
}

func TestCheckFailsClosedOnMixedResolution(t *testing.T) {
	g := newTestGuard(map[string][]string{
		"rebind.example.com": {"93.184.216.34", "10.0.0.5"},
	})

	err := g.Check(context.Background(), "http://rebind.example.com/")
	require.Error(t, err)
	assert.Equal(t, response.CodeSSRFBlocked, response.CodeOf(err))
}

func TestCheckRejectsBadInput(t *testing.T) {
	g := newTestGuard(nil)

	tests := []struct {
		name string
		url  string
		code string
	}{
		{"file scheme", "file:///etc/passwd", response.CodeValidation},
		{"gopher scheme", "gopher://example.com/", response.CodeValidation},
		{"no host", "http:///path", response.CodeValidation},
		{"unparseable", "http://%zz", response.CodeValidation},
		{"unknown host", "http://nowhere.example.com/", response.CodeFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(context.Background(), tt.url)
			require.Error(t, err)
			assert.Equal(t, tt.code, response.CodeOf(err))
		})
	}
}

func TestCheckBoundsDNSTime(t *testing.T) {
	g := New(
		WithResolver(&fakeResolver{delay: time.Second}),
		WithDNSTimeout(20*time.Millisecond),
	)

	start := time.Now()
	err := g.Check(context.Background(), "http://slow.example.com/")

	require.Error(t, err)
	assert.Equal(t, response.CodeFetchTimeout, response.CodeOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestControlRejectsBlockedDialAddress(t *testing.T) {
	g := New()

	assert.Error(t, g.control("tcp4", "127.0.0.1:80", nil))
	assert.Error(t, g.control("tcp6", "[::1]:443", nil))
	assert.NoError(t, g.control("tcp4", "93.184.216.34:443", nil))
}
