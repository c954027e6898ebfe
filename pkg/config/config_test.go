package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 5, c.Channel.Attempts)
	assert.Equal(t, 200*time.Millisecond, c.Channel.RetryDelay)
	assert.Equal(t, 300*time.Millisecond, c.Channel.SettleDelay)
	assert.Equal(t, "flagpin", c.Metrics.Namespace)
	assert.Empty(t, c.Browser.CDPURL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
browser:
  cdp_url: http://localhost:9222
channel:
  attempts: 3
  retry_delay: 50ms
capability:
  denied_hosts:
    - "*.corp.example"
store:
  path: /tmp/flagpin.json
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path)
	assert.Equal(t, "http://localhost:9222", c.Browser.CDPURL)
	assert.Equal(t, 3, c.Channel.Attempts)
	assert.Equal(t, 50*time.Millisecond, c.Channel.RetryDelay)
	assert.Equal(t, 300*time.Millisecond, c.Channel.SettleDelay, "unset fields keep their default")
	assert.Equal(t, []string{"*.corp.example"}, c.Capability.DeniedHosts)
	assert.Equal(t, "/tmp/flagpin.json", c.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "malformed yaml", content: "channel: [", wantErr: "failed to parse config file"},
		{name: "zero attempts", content: "channel:\n  attempts: 0\n", wantErr: "channel.attempts"},
		{name: "negative delay", content: "channel:\n  retry_delay: -1s\n", wantErr: "retry_delay"},
		{name: "bad pattern", content: "capability:\n  denied_hosts: [\"[oops\"]\n", wantErr: "invalid denied host pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
