package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the ZooKeeper client port assumed when an address has none.
const DefaultPort = 2181

// Discovery resolves the ensemble's client addresses (host:port).
type Discovery interface {
	Servers(ctx context.Context) ([]string, error)
}

// Normalize validates addr and appends DefaultPort when it carries no port.
func Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("empty server address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// bare host or IPv6 literal without port
		if strings.Contains(err.Error(), "missing port") {
			return net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(DefaultPort)), nil
		}
		return "", fmt.Errorf("server address %q: %w", addr, err)
	}
	if host == "" {
		return "", fmt.Errorf("server address %q: missing host", addr)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("server address %q: invalid port %q", addr, port)
	}
	return net.JoinHostPort(host, port), nil
}

// NormalizeAll applies Normalize to every entry and drops duplicates, keeping order.
func NormalizeAll(addrs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		n, err := Normalize(a)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
