// Package access gates incoming connections on a source-address allowlist
// and a session token. Both checks are independent and opt-in: with no
// networks configured every address passes, and with no admin password
// configured the token check is skipped entirely.
package access

import (
	"log"
	"net"
	"strings"
	"time"

	"github.com/glukw/sshterm/internal/logutil"
	"github.com/glukw/sshterm/internal/session"
)

// Decision is the outcome of Guard.Authorize. The two deny reasons stay
// distinct so callers can surface them differently (403 vs 401, or the
// matching WebSocket close codes).
type Decision int

const (
	Allow Decision = iota
	// DenyForbidden means the source address is outside the allowlist.
	DenyForbidden
	// DenyUnauthorized means the session token is missing, invalid or expired.
	DenyUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyForbidden:
		return "forbidden"
	case DenyUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// ParseNetworks parses a comma-separated list of IPs and CIDR ranges into
// networks. Single IPs become /32 (IPv4) or /128 (IPv6) entries. Entries
// that fail to parse are skipped with a warning rather than aborting
// startup. Empty input returns nil, which means allow-all.
func ParseNetworks(allowList string) []*net.IPNet {
	allowList = strings.TrimSpace(allowList)
	if allowList == "" {
		return nil
	}

	var networks []*net.IPNet
	for _, part := range strings.Split(allowList, ",") {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				log.Printf("WARNING: skipping invalid allowlist entry %q: %v", logutil.SanitizeForLog(entry), err)
				continue
			}
			networks = append(networks, network)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			log.Printf("WARNING: skipping invalid allowlist entry %q", logutil.SanitizeForLog(entry))
			continue
		}
		var mask net.IPMask
		if ip.To4() != nil {
			mask = net.CIDRMask(32, 32)
		} else {
			mask = net.CIDRMask(128, 128)
		}
		networks = append(networks, &net.IPNet{IP: ip.Mask(mask), Mask: mask})
	}

	return networks
}

// Guard holds the parsed allowlist and token parameters for one process.
// It is immutable after construction and safe for concurrent use.
type Guard struct {
	networks    []*net.IPNet
	secret      string
	maxAge      time.Duration
	authEnabled bool
}

// NewGuard builds a guard from the raw configuration values. allowList is
// parsed once here; authEnabled controls whether tokens are checked at all.
func NewGuard(allowList, secret string, maxAge time.Duration, authEnabled bool) *Guard {
	return &Guard{
		networks:    ParseNetworks(allowList),
		secret:      secret,
		maxAge:      maxAge,
		authEnabled: authEnabled,
	}
}

// IPAllowed reports whether sourceIP passes the allowlist. With no networks
// configured every address passes. When networks are configured, an address
// that cannot be parsed is denied.
func (g *Guard) IPAllowed(sourceIP string) bool {
	if len(g.networks) == 0 {
		return true
	}
	ip := net.ParseIP(strings.TrimSpace(sourceIP))
	if ip == nil {
		return false
	}
	for _, network := range g.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// TokenValid reports whether the token check passes. With auth disabled it
// always passes regardless of the token.
func (g *Guard) TokenValid(token string) bool {
	if !g.authEnabled {
		return true
	}
	return session.Verify(token, g.secret, g.maxAge)
}

// Authorize evaluates both checks for one connection attempt. It is a pure
// predicate with no side effects, so callers re-run it freely: once before
// accepting a long-lived connection and again inside its handler.
func (g *Guard) Authorize(sourceIP, token string) Decision {
	if !g.IPAllowed(sourceIP) {
		return DenyForbidden
	}
	if !g.TokenValid(token) {
		return DenyUnauthorized
	}
	return Allow
}
