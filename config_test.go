package ukur

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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
anshar:
  etEnabled: true
  pollingEtUrl: "https://anshar.example.org/rest/et?requestorId={requestorId}"
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "NSB", cfg.Operator)
	assert.Equal(t, "Ukur", cfg.ProductName)
	assert.Equal(t, 30*time.Second, cfg.Anshar.PollingInterval())
	assert.Equal(t, time.Hour, cfg.Tiamat.Interval())
	assert.Equal(t, 30*time.Second, cfg.Cluster.LeaseTTL())
	assert.Equal(t, 1000, cfg.Queue.Capacity)
	assert.Equal(t, 4, cfg.Queue.Workers)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  port: 9090
operator: FLY
productName: Ukur-Test
anshar:
  etEnabled: true
  sxEnabled: true
  pollingEtUrl: "https://anshar.example.org/rest/et"
  pollingSxUrl: "https://anshar.example.org/rest/sx"
  pollingIntervalMS: 15000
tiamat:
  enabled: true
  url: "https://tiamat.example.org/quays"
  intervalMS: 600000
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "FLY", cfg.Operator)
	assert.Equal(t, "Ukur-Test", cfg.ProductName)
	assert.Equal(t, 15*time.Second, cfg.Anshar.PollingInterval())
	assert.Equal(t, 10*time.Minute, cfg.Tiamat.Interval())
}

func TestLoadConfigSubscriptionModeRequiresURLs(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
anshar:
  useSubscription: true
  etEnabled: true
`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
anshar:
  useSubscription: true
  etEnabled: true
  subscriptionUrl: "https://anshar.example.org/subscribe"
`))
	assert.Error(t, err, "ownBaseUrl is required for the callback address")

	cfg, err := LoadConfig(writeConfig(t, `
anshar:
  useSubscription: true
  etEnabled: true
  subscriptionUrl: "https://anshar.example.org/subscribe"
  ownBaseUrl: "https://ukur.example.org"
`))
	require.NoError(t, err)
	assert.True(t, cfg.Anshar.UseSubscription)
}

func TestLoadConfigPollingModeRequiresURLs(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
anshar:
  etEnabled: true
`))
	assert.Error(t, err)
}

func TestLoadConfigSubscriptionModeWithBothKindsDisabledIsAccepted(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
anshar:
  useSubscription: true
  subscriptionUrl: "https://anshar.example.org/subscribe"
  ownBaseUrl: "https://ukur.example.org"
`))
	require.NoError(t, err)
	assert.False(t, cfg.Anshar.ETEnabled)
	assert.False(t, cfg.Anshar.SXEnabled)
}

func TestLoadConfigRejectsInvalidURL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
anshar:
  etEnabled: true
  pollingEtUrl: "not a url"
`))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
