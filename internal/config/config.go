// Package config loads the node's TOML configuration file and applies
// THETACRYPT_-prefixed environment overrides on top, using
// github.com/BurntSushi/toml for parsing.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/protocol"
)

// Duration wraps time.Duration so it can be written as "5s", "500ms" in
// TOML instead of a raw nanosecond integer.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// SchemeDefaults holds the per-scheme round timeout, a config-driven
// instance deadline.
type SchemeDefaults struct {
	Timeout Duration `toml:"timeout"`
}

// RegistryConfig holds internal/orchestrator.Registry's channel bounds,
// typically sized in the 32-128 range.
type RegistryConfig struct {
	CmdCap     int `toml:"cmd_cap"`
	BacklogCap int `toml:"backlog_cap"`
	InboundCap int `toml:"inbound_cap"`
}

// Config is the full node configuration file.
type Config struct {
	NodeID       string `toml:"node_id"`
	ListenAddr   string `toml:"listen_addr"`
	RPCAddr      string `toml:"rpc_addr"`
	KeychainPath string `toml:"keychain_path"`
	GossipTopic  string `toml:"gossip_topic"`
	Peers        []string `toml:"peers"`

	Registry RegistryConfig `toml:"registry"`

	DefaultTimeout Duration                  `toml:"default_timeout"`
	Schemes        map[string]SchemeDefaults `toml:"schemes"`

	ScavengeInterval Duration `toml:"scavenge_interval"`
	ScavengeMaxAge   Duration `toml:"scavenge_max_age"`
}

// schemeNames maps a config file's scheme keys to protocol.Scheme tags.
var schemeNames = map[string]protocol.Scheme{
	"sg02":  protocol.SG02,
	"bz03":  protocol.BZ03,
	"bls04": protocol.BLS04,
	"cks05": protocol.CKS05,
	"sh00":  protocol.SH00,
	"frost": protocol.FROST,
}

// Load reads path as TOML, then applies environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "config: read node config file")
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets a small, fixed set of fields be overridden
// without editing the config file, e.g. for container deployments. Kept
// explicit rather than reflection-driven: the override surface is small
// and fixed, so a field-by-field list is clearer than a generic walker.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("THETACRYPT_NODE_ID"); ok {
		cfg.NodeID = v
	}
	if v, ok := os.LookupEnv("THETACRYPT_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("THETACRYPT_RPC_ADDR"); ok {
		cfg.RPCAddr = v
	}
	if v, ok := os.LookupEnv("THETACRYPT_KEYCHAIN_PATH"); ok {
		cfg.KeychainPath = v
	}
	if v, ok := os.LookupEnv("THETACRYPT_GOSSIP_TOPIC"); ok {
		cfg.GossipTopic = v
	}
}

// Timeouts converts the config file's scheme-name-keyed timeout table
// into the map[protocol.Scheme]time.Duration internal/orchestrator.Engine
// expects.
func (c *Config) Timeouts() (map[protocol.Scheme]time.Duration, error) {
	out := make(map[protocol.Scheme]time.Duration, len(c.Schemes))
	for name, defaults := range c.Schemes {
		scheme, ok := schemeNames[name]
		if !ok {
			return nil, errs.Newf(errs.InvalidParams, "config: unknown scheme %q in [schemes] table", name)
		}
		out[scheme] = defaults.Timeout.Duration
	}
	return out, nil
}
