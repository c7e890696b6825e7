package dns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/amirimatin/zkping/pkg/discovery"
)

// Options configures DNS-based discovery.
type Options struct {
	// Names are SRV records or hostnames to resolve.
	// Examples: "_client._tcp.zk.example.com" (SRV) or "zk.example.com" (A/AAAA).
	Names []string

	// Port used when resolving A/AAAA records (no port info in DNS answer).
	Port int

	// Resolver optionally overrides the DNS resolver used.
	Resolver *net.Resolver
}

type impl struct {
	opts Options
}

// New returns a DNS-backed discovery that resolves SRV and A/AAAA names.
func New(opts Options) discovery.Discovery {
	if opts.Port == 0 {
		opts.Port = discovery.DefaultPort
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	return &impl{opts: opts}
}

func (d *impl) Servers(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(hp string) {
		if _, ok := seen[hp]; !ok {
			out = append(out, hp)
			seen[hp] = struct{}{}
		}
	}
	var lastErr error
	for _, name := range d.opts.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		// already host:port
		if strings.Contains(name, ":") && !strings.HasPrefix(name, "_") {
			hp, err := discovery.Normalize(name)
			if err != nil {
				return nil, err
			}
			add(hp)
			continue
		}
		if strings.HasPrefix(name, "_") && strings.Contains(name, "._") {
			recs, err := d.lookupSRV(ctx, name)
			if err == nil && len(recs) > 0 {
				for _, hp := range recs {
					add(hp)
				}
				continue
			}
			lastErr = err
		}
		hosts, err := d.lookupHost(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}
		for _, hp := range hosts {
			add(hp)
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("dns discovery: %w", lastErr)
	}
	sort.Strings(out)
	return out, nil
}

func (d *impl) lookupSRV(ctx context.Context, fqdn string) ([]string, error) {
	svc, proto, domain := parseSRVName(fqdn)
	if svc == "" || proto == "" || domain == "" {
		return nil, fmt.Errorf("malformed SRV name %q", fqdn)
	}
	_, addrs, err := d.opts.Resolver.LookupSRV(ctx, svc, proto, domain)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		host := strings.TrimSuffix(a.Target, ".")
		out = append(out, net.JoinHostPort(host, strconv.Itoa(int(a.Port))))
	}
	return out, nil
}

func (d *impl) lookupHost(ctx context.Context, host string) ([]string, error) {
	ips, err := d.opts.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.JoinHostPort(ip, strconv.Itoa(d.opts.Port)))
	}
	return out, nil
}

func parseSRVName(fqdn string) (service, proto, name string) {
	// Expect pattern: _service._proto.name
	parts := strings.SplitN(fqdn, ".", 3)
	if len(parts) < 3 {
		return "", "", ""
	}
	s := strings.TrimPrefix(parts[0], "_")
	p := strings.TrimPrefix(parts[1], "_")
	n := parts[2]
	return s, p, n
}
