package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults 只有凭证时其余字段取默认值
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BITFLYER_API_KEY", "key")
	t.Setenv("BITFLYER_API_SECRET", "secret")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultStreamURL, cfg.Stream.URL)
	assert.Equal(t, []string{"lightning_board_snapshot_FX_BTC_JPY"}, cfg.Stream.PublicChannels)
	assert.Equal(t, []string{"child_order_events"}, cfg.Stream.PrivateChannels)
	assert.Equal(t, 10*time.Second, cfg.BatchPeriod())
	assert.Equal(t, 10*time.Second, cfg.HealthPeriod())
	assert.Equal(t, "JPY", cfg.LegalCurrencyCode)
	assert.Equal(t, "BTC", cfg.CryptoCurrencyCode)
	assert.Equal(t, 100, cfg.DataBufferSize)
	assert.Equal(t, "ACTIVE", cfg.OrderSyncState)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 5, cfg.Risk.MaxConsecutiveErrors)
	assert.Zero(t, cfg.Risk.DailyLossLimit)
	assert.Equal(t, "badger", cfg.Storage.SnapshotBackend)
	assert.Same(t, cfg, Get())
}

// TestLoad_FileOverridesEnv 配置文件优先于环境变量
func TestLoad_FileOverridesEnv(t *testing.T) {
	t.Setenv("BITFLYER_API_KEY", "env-key")
	t.Setenv("BITFLYER_API_SECRET", "env-secret")
	t.Setenv("BATCH_INTERVAL", "30")
	t.Setenv("BITFLYER_PUBLIC_CHANNELS", "a, b,,c")

	path := filepath.Join(t.TempDir(), "flyerbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_key: file-key
batch_interval: 5
dry_run: false
stream:
  private_channels: [child_order_events, parent_order_events]
agent:
  kind: Random
  order_size: 0.02
risk:
  daily_loss_limit: 50000
storage:
  snapshot_backend: JSON
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "env-secret", cfg.APISecret)
	assert.Equal(t, 5, cfg.BatchInterval)
	assert.Equal(t, 50000.0, cfg.Risk.DailyLossLimit)
	assert.Equal(t, "json", cfg.Storage.SnapshotBackend)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Stream.PublicChannels)
	assert.Equal(t, []string{"child_order_events", "parent_order_events"}, cfg.Stream.PrivateChannels)
	assert.Equal(t, "random", cfg.Agent.Kind)
	assert.Equal(t, 0.02, cfg.Agent.OrderSize)
	assert.False(t, cfg.DryRun)
}

// TestLoad_UnsupportedExtension 不支持的扩展名
func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flyerbot.toml")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

// TestValidate 校验失败的场景
func TestValidate(t *testing.T) {
	t.Setenv("BITFLYER_API_KEY", "key")
	t.Setenv("BITFLYER_API_SECRET", "secret")

	cases := map[string]func(c *Config){
		"缺少 key":   func(c *Config) { c.APIKey = "" },
		"批量间隔为 0":  func(c *Config) { c.BatchInterval = 0 },
		"健康检查间隔为负": func(c *Config) { c.HealthInterval = -1 },
		"缓冲区为 0":   func(c *Config) { c.DataBufferSize = 0 },
		"没有频道":     func(c *Config) { c.Stream.PublicChannels = nil; c.Stream.PrivateChannels = nil },
		"未知 agent": func(c *Config) { c.Agent.Kind = "dqn" },
		"下单数量为 0":  func(c *Config) { c.Agent.OrderSize = 0 },
		"未知快照后端":   func(c *Config) { c.Storage.SnapshotBackend = "redis" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadFromFile("")
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

type mapSecrets map[string]string

func (m mapSecrets) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

// TestFillCredentials 只补齐缺失的凭证
func TestFillCredentials(t *testing.T) {
	cfg := &Config{APIKey: "env-key"}
	require.NoError(t, cfg.FillCredentials(mapSecrets{
		"env/BITFLYER_API_KEY":    "db-key",
		"env/BITFLYER_API_SECRET": " db-secret\n",
	}, "env/"))
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "db-secret", cfg.APISecret)

	empty := &Config{}
	require.NoError(t, empty.FillCredentials(mapSecrets{}, "env/"))
	assert.Error(t, empty.Validate())
}
