package static

import (
	"context"
	"strings"

	"github.com/amirimatin/zkping/pkg/discovery"
)

type staticServers struct {
	servers []string
}

func (s *staticServers) Servers(context.Context) ([]string, error) {
	return discovery.NormalizeAll(s.servers)
}

// New returns a Discovery that always returns the given servers.
func New(servers ...string) discovery.Discovery {
	cleaned := make([]string, 0, len(servers))
	for _, v := range servers {
		v = strings.TrimSpace(v)
		if v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return &staticServers{servers: cleaned}
}

// Parse converts a quorum string such as "zk1:2181,zk2:2181" into entries.
func Parse(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
