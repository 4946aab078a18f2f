package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khanghh/forkexec/chains"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[Fork]
DefaultRPC = "http://default.test"

[Fork.Endpoints]
base = "http://base.test"
137 = " http://polygon.test "

[Exec]
TraceMode = "jumpSimple"
RequestTimeout = 30000000000
`

func TestLoadTOMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	var config appConfig
	require.NoError(t, loadTOMLConfig(path, &config))
	require.NoError(t, config.Fork.Sanitize())
	require.NoError(t, config.Exec.Sanitize())
	assert.Equal(t, "jumpSimple", config.Exec.TraceMode)
	assert.Equal(t, 30*time.Second, config.Exec.RequestTimeout)

	reg, err := config.Fork.Apply(chains.NewRegistry(map[uint64]string{chains.Ethereum: "http://eth.test"}, ""))
	require.NoError(t, err)
	url, ok := reg.Lookup(chains.Base)
	assert.True(t, ok)
	assert.Equal(t, "http://base.test", url)
	url, _ = reg.Lookup(chains.Polygon)
	assert.Equal(t, "http://polygon.test", url)
	url, _ = reg.Lookup(chains.Ethereum)
	assert.Equal(t, "http://eth.test", url)
	url, _ = reg.DefaultURL()
	assert.Equal(t, "http://default.test", url)
}

func TestLoadTOMLConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Exec]\nGasLimit = 1\n"), 0644))

	var config appConfig
	err := loadTOMLConfig(path, &config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GasLimit")
}

func TestTOMLConfigRoundTrip(t *testing.T) {
	config := appConfig{
		Fork: chains.Config{DefaultRPC: "http://default.test", Endpoints: map[string]string{"8453": "http://base.test"}},
	}
	config.Exec.TraceMode = "call"
	out, err := tomlSettings.Marshal(&config)
	require.NoError(t, err)

	var decoded appConfig
	require.NoError(t, tomlSettings.Unmarshal(out, &decoded))
	assert.Equal(t, config, decoded)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, loadEnvFile(""))

	t.Setenv("OPTIMISM_RPC", "http://set.test")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OPTIMISM_RPC=http://file.test\nFORKEXEC_TEST_ONLY=1\n"), 0644))
	require.NoError(t, loadEnvFile(path))
	t.Cleanup(func() { os.Unsetenv("FORKEXEC_TEST_ONLY") })

	assert.Equal(t, "http://set.test", os.Getenv("OPTIMISM_RPC"))
	assert.Equal(t, "1", os.Getenv("FORKEXEC_TEST_ONLY"))
}
