package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/shieldsync/synerr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
network: mainnet
pool: both
lightwalletd_url: "lightwalletd.example.com:9067"
start_block: 100
end_block: 200
batch_size: 2048
spam_threshold: 30
`)
	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Mainnet, p.Network)
	require.True(t, p.WantsPoolA())
	require.True(t, p.WantsPoolB())
}

func TestLoadRejectsUnknownPool(t *testing.T) {
	path := writeConfig(t, `
network: mainnet
pool: nonsense
lightwalletd_url: "x:9067"
start_block: 0
end_block: 10
`)
	_, err := Load(path)
	require.ErrorIs(t, err, synerr.ConfigInvalid)
}

func TestValidateRejectsEmptyRange(t *testing.T) {
	p := &Params{Network: Mainnet, Pool: Both, LightwalletdURL: "x:9067", StartBlock: 10, EndBlock: 10}
	err := p.Validate()
	require.ErrorIs(t, err, synerr.ConfigInvalid)
}

func TestValidateRejectsMissingURL(t *testing.T) {
	p := &Params{Network: Mainnet, Pool: Both, StartBlock: 0, EndBlock: 10}
	err := p.Validate()
	require.ErrorIs(t, err, synerr.ConfigInvalid)
}

func TestValidateRejectsZeroStartBlock(t *testing.T) {
	p := &Params{Network: Mainnet, Pool: Both, LightwalletdURL: "x:9067", StartBlock: 0, EndBlock: 10}
	err := p.Validate()
	require.ErrorIs(t, err, synerr.ConfigInvalid)
}

func TestWantsPoolSelectsOnlyRequestedPool(t *testing.T) {
	p := &Params{Pool: Orchard}
	require.True(t, p.WantsPoolA())
	require.False(t, p.WantsPoolB())
}
