// Package config loads the prober settings from flags, ZKPING_* environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amirimatin/zkping/pkg/discovery"
	dDNS "github.com/amirimatin/zkping/pkg/discovery/dns"
	dFile "github.com/amirimatin/zkping/pkg/discovery/file"
	dStatic "github.com/amirimatin/zkping/pkg/discovery/static"
	tlsx "github.com/amirimatin/zkping/pkg/security/tlsconfig"
	"github.com/amirimatin/zkping/pkg/session"
)

// EnvPrefix prefixes every environment override, e.g. ZKPING_QUORUM.
const EnvPrefix = "ZKPING"

// Config holds every startup setting. Keys match the long flag names.
type Config struct {
	Quorum    string        `mapstructure:"quorum"`
	Timeout   int           `mapstructure:"timeout"` // seconds
	Count     int           `mapstructure:"count"`
	ZnodeRoot string        `mapstructure:"znoderoot"`
	Interval  time.Duration `mapstructure:"interval"`

	Discovery string `mapstructure:"discovery"` // static|dns|file
	DNSNames  string `mapstructure:"dns-names"`
	DNSPort   int    `mapstructure:"dns-port"`
	FilePath  string `mapstructure:"file-path"`
	FileEnv   string `mapstructure:"file-env"`

	Output string `mapstructure:"output"` // text|json

	MgmtAddr  string `mapstructure:"mgmt-addr"`
	MgmtProto string `mapstructure:"mgmt-proto"` // http|grpc
	MgmtTLS   bool   `mapstructure:"mgmt-tls"`

	TLSEnable     bool   `mapstructure:"tls-enable"`
	TLSCA         string `mapstructure:"tls-ca"`
	TLSCert       string `mapstructure:"tls-cert"`
	TLSKey        string `mapstructure:"tls-key"`
	TLSServerName string `mapstructure:"tls-server-name"`
	TLSSkipVerify bool   `mapstructure:"tls-skip-verify"`

	Trace     bool   `mapstructure:"trace"`
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Timeout:   int(session.DefaultTimeout / time.Second),
		ZnodeRoot: "/",
		Interval:  time.Second,
		Discovery: "static",
		DNSPort:   discovery.DefaultPort,
		Output:    "text",
		MgmtProto: "http",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// BindFlags registers the prober flags on fs with their defaults.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "optional YAML file with the same keys as the flags")
	fs.String("quorum", d.Quorum, "comma-separated ensemble addresses (host:port) with optional chroot suffix, used by discovery=static")
	fs.Int("timeout", d.Timeout, "session timeout in seconds")
	fs.Int("count", d.Count, "stop after this many cycles (0 runs until interrupted)")
	fs.String("znoderoot", d.ZnodeRoot, "parent path of the probe znodes")
	fs.Duration("interval", d.Interval, "pause between cycles")
	fs.String("discovery", d.Discovery, "quorum discovery backend: static|dns|file")
	fs.String("dns-names", "", "comma-separated DNS names or SRV records (e.g., _client._tcp.zk.example.com)")
	fs.Int("dns-port", d.DNSPort, "port used for A/AAAA lookups")
	fs.String("file-path", "", "path or glob to a file with servers (one per line or CSV)")
	fs.String("file-env", "", "ENV var name containing CSV servers; overrides file when set")
	fs.String("output", d.Output, "report line format on stdout: text|json")
	fs.String("mgmt-addr", "", "management endpoint address (host:port); empty disables it")
	fs.String("mgmt-proto", d.MgmtProto, "management protocol: http|grpc")
	fs.Bool("mgmt-tls", false, "serve the management endpoint over TLS using --tls-cert/--tls-key")
	fs.Bool("tls-enable", false, "connect to the ensemble over TLS")
	fs.String("tls-ca", "", "path to CA cert (PEM)")
	fs.String("tls-cert", "", "path to client certificate (PEM)")
	fs.String("tls-key", "", "path to client private key (PEM)")
	fs.String("tls-server-name", "", "expected server name (for TLS validation)")
	fs.Bool("tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
	fs.Bool("trace", false, "enable OpenTelemetry stdout tracing (dev)")
	fs.String("log-level", d.LogLevel, "log level: debug|info|warn|error")
	fs.String("log-format", d.LogFormat, "log encoding: console|json")
}

// Load merges flags, environment and the optional YAML file named by the
// config key, in that order of precedence, then validates the result.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, &Error{Err: err}
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, Errorf("config", "read %s: %w", path, err)
		}
	}
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &Error{Err: fmt.Errorf("decode: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that can be judged without network access.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return Errorf("timeout", "must be a positive number of seconds, got %d", c.Timeout)
	}
	if c.Count < 0 {
		return Errorf("count", "must not be negative, got %d", c.Count)
	}
	if c.Interval <= 0 {
		return Errorf("interval", "must be positive, got %s", c.Interval)
	}
	if !strings.HasPrefix(c.ZnodeRoot, "/") {
		return Errorf("znoderoot", "%q is not an absolute path", c.ZnodeRoot)
	}
	switch c.Discovery {
	case "static", "":
		hosts, _ := SplitChroot(c.Quorum)
		servers := dStatic.Parse(hosts)
		if len(servers) == 0 {
			return Errorf("quorum", "no servers given")
		}
		if _, err := discovery.NormalizeAll(servers); err != nil {
			return Errorf("quorum", "%w", err)
		}
	case "dns":
		if len(dStatic.Parse(c.DNSNames)) == 0 {
			return Errorf("dns-names", "required with discovery=dns")
		}
		if c.DNSPort < 1 || c.DNSPort > 65535 {
			return Errorf("dns-port", "invalid port %d", c.DNSPort)
		}
	case "file":
		if c.FilePath == "" && c.FileEnv == "" {
			return Errorf("file-path", "file-path or file-env required with discovery=file")
		}
	default:
		return Errorf("discovery", "unknown backend %q (want static|dns|file)", c.Discovery)
	}
	switch c.Output {
	case "text", "json":
	default:
		return Errorf("output", "unknown format %q (want text|json)", c.Output)
	}
	if c.MgmtAddr != "" && c.MgmtProto != "http" && c.MgmtProto != "grpc" {
		return Errorf("mgmt-proto", "unknown protocol %q (want http|grpc)", c.MgmtProto)
	}
	if c.MgmtTLS && (c.TLSCert == "" || c.TLSKey == "") {
		return Errorf("mgmt-tls", "requires --tls-cert and --tls-key")
	}
	return nil
}

// SessionTimeout converts the timeout in seconds.
func (c Config) SessionTimeout() time.Duration { return time.Duration(c.Timeout) * time.Second }

// NewDiscovery returns the configured quorum discovery backend.
func (c Config) NewDiscovery() discovery.Discovery {
	switch c.Discovery {
	case "dns":
		return dDNS.New(dDNS.Options{Names: dStatic.Parse(c.DNSNames), Port: c.DNSPort})
	case "file":
		return dFile.New(dFile.Options{Path: c.FilePath, Env: c.FileEnv})
	default:
		hosts, _ := SplitChroot(c.Quorum)
		return dStatic.New(dStatic.Parse(hosts)...)
	}
}

// SplitChroot separates the chroot suffix of a connect string such as
// "zk1:2181,zk2:2181/app" from its host list. A bare "/" is no chroot.
func SplitChroot(quorum string) (hosts, chroot string) {
	i := strings.Index(quorum, "/")
	if i < 0 {
		return quorum, ""
	}
	return quorum[:i], strings.TrimRight(quorum[i:], "/")
}

// ProbeRoot is the znode root the probe nodes are created under, with the
// quorum's chroot, if any, prefixed.
func (c Config) ProbeRoot() string {
	_, chroot := SplitChroot(c.Quorum)
	if c.Discovery != "static" && c.Discovery != "" {
		chroot = ""
	}
	root := strings.TrimRight(c.ZnodeRoot, "/")
	if chroot+root == "" {
		return "/"
	}
	return chroot + root
}

// TLS returns the TLS inputs shared by the ensemble client and the management server.
func (c Config) TLS(enable bool) tlsx.Options {
	return tlsx.Options{
		Enable:             enable,
		CAFile:             c.TLSCA,
		CertFile:           c.TLSCert,
		KeyFile:            c.TLSKey,
		ServerName:         c.TLSServerName,
		InsecureSkipVerify: c.TLSSkipVerify,
	}
}
