package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/protocol"
)

const sampleConfig = `
node_id = "node-1"
listen_addr = "/ip4/0.0.0.0/tcp/9000"
rpc_addr = "127.0.0.1:9001"
keychain_path = "./keys/node-1.keychain"
gossip_topic = "thetacrypt-group-a"
peers = ["node-2", "node-3"]
default_timeout = "2s"
scavenge_interval = "1m"
scavenge_max_age = "10m"

[registry]
cmd_cap = 64
backlog_cap = 64
inbound_cap = 32

[schemes.sg02]
timeout = "500ms"

[schemes.bls04]
timeout = "1s"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thetacrypt.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadParsesDurationsAndTables(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.NodeID)
	assert.Equal(t, []string{"node-2", "node-3"}, cfg.Peers)
	assert.Equal(t, "2s", cfg.DefaultTimeout.String())
	assert.Equal(t, "1m0s", cfg.ScavengeInterval.String())
	assert.Equal(t, 64, cfg.Registry.CmdCap)
	assert.Equal(t, "500ms", cfg.Schemes["sg02"].Timeout.String())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	t.Setenv("THETACRYPT_NODE_ID", "node-override")
	t.Setenv("THETACRYPT_RPC_ADDR", "127.0.0.1:9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "node-override", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:9999", cfg.RPCAddr)
	// Untouched fields keep their file-provided value.
	assert.Equal(t, "thetacrypt-group-a", cfg.GossipTopic)
}

func TestTimeoutsMapsSchemeNamesToProtocolScheme(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	timeouts, err := cfg.Timeouts()
	require.NoError(t, err)

	assert.Contains(t, timeouts, protocol.SG02)
	assert.Contains(t, timeouts, protocol.BLS04)
	assert.Equal(t, cfg.Schemes["sg02"].Timeout.Duration, timeouts[protocol.SG02])
}

func TestTimeoutsRejectsUnknownScheme(t *testing.T) {
	path := writeTempConfig(t, sampleConfig+"\n[schemes.notascheme]\ntimeout = \"1s\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Timeouts()
	assert.Error(t, err)
}

func TestDurationUnmarshalTextRejectsGarbage(t *testing.T) {
	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}
