package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultStreamURL       = "wss://ws.lightstream.bitflyer.com/json-rpc"
	defaultRESTBaseURL     = "https://api.bitflyer.com"
	defaultProductCode     = "FX_BTC_JPY"
	defaultPublicChannel   = "lightning_board_snapshot_FX_BTC_JPY"
	defaultPrivateChannel  = "child_order_events"
	defaultBatchInterval   = 10
	defaultHealthInterval  = 10
	defaultDataBufferSize  = 100
	defaultPauseBufferSize = 1000
)

// 支持的 agent 类型
var agentKinds = map[string]bool{"hold": true, "random": true}

// 空值按 badger 处理
var snapshotBackends = map[string]bool{"": true, "badger": true, "json": true}

// StreamConfig 实时 API 配置
type StreamConfig struct {
	URL             string
	PublicChannels  []string
	PrivateChannels []string
	PauseBufferSize int // 暂停期间最多缓存的帧数，超出丢弃最旧的
}

// RESTConfig HTTP API 配置
type RESTConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AgentConfig 决策 agent 配置
type AgentConfig struct {
	Kind      string  // hold / random
	OrderSize float64 // 每次下单数量
	Seed      int64   // random agent 的随机种子（0 表示按时间）
}

// RiskConfig 熔断阈值，<= 0 表示关闭
type RiskConfig struct {
	MaxConsecutiveErrors int     // 连续下单失败次数
	DailyLossLimit       float64 // 当日已实现亏损（法币）
}

// StorageConfig 本地存储配置
type StorageConfig struct {
	SecretsDB       string // 加密凭证库（badger），环境变量里没有凭证时从这里读取
	SecretsKey      string // 凭证库的 32 字节密钥（hex/base64）
	SnapshotDir     string // 账本快照目录（为空则不持久化）
	SnapshotBackend string // badger 或 json
	JournalPath     string // sqlite 成交流水（为空则不记录）
}

// ControlPlaneConfig 控制面 HTTP 配置
type ControlPlaneConfig struct {
	Listen         string
	AllowedOrigins []string
}

// LogConfig 日志配置
type LogConfig struct {
	Level string
	Dir   string
}

// Config 应用配置
type Config struct {
	APIKey             string
	APISecret          string
	ProductCode        string
	LegalCurrencyCode  string
	CryptoCurrencyCode string
	Stream             StreamConfig
	REST               RESTConfig
	BatchInterval      int    // 批量同步间隔（秒）
	HealthInterval     int    // 健康检查间隔（秒）
	DataBufferSize     int    // 板快照缓冲区大小
	OrderSyncState     string // 订单同步时的状态过滤（为空则不过滤）
	Agent              AgentConfig
	Risk               RiskConfig
	Storage            StorageConfig
	ControlPlane       ControlPlaneConfig
	MetricsListen      string
	Log                LogConfig
	ProxyURL           string
	DryRun             bool // 纸交易模式：agent 的动作只写日志，不真实下单
}

// BatchPeriod 批量同步间隔
func (c *Config) BatchPeriod() time.Duration {
	return time.Duration(c.BatchInterval) * time.Second
}

// HealthPeriod 健康检查间隔
func (c *Config) HealthPeriod() time.Duration {
	return time.Duration(c.HealthInterval) * time.Second
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析），未设置的字段回退到环境变量和默认值
type ConfigFile struct {
	APIKey             string `yaml:"api_key" json:"api_key"`
	APISecret          string `yaml:"api_secret" json:"api_secret"`
	ProductCode        string `yaml:"product_code" json:"product_code"`
	LegalCurrencyCode  string `yaml:"legal_currency_code" json:"legal_currency_code"`
	CryptoCurrencyCode string `yaml:"crypto_currency_code" json:"crypto_currency_code"`
	Stream             struct {
		URL             string   `yaml:"url" json:"url"`
		PublicChannels  []string `yaml:"public_channels" json:"public_channels"`
		PrivateChannels []string `yaml:"private_channels" json:"private_channels"`
		PauseBufferSize int      `yaml:"pause_buffer_size" json:"pause_buffer_size"`
	} `yaml:"stream" json:"stream"`
	REST struct {
		BaseURL        string `yaml:"base_url" json:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"rest" json:"rest"`
	BatchInterval       int    `yaml:"batch_interval" json:"batch_interval"`
	HealthCheckInterval int    `yaml:"health_check_interval" json:"health_check_interval"`
	DataBufferSize      int    `yaml:"data_buffer_size" json:"data_buffer_size"`
	OrderSyncState      string `yaml:"order_sync_state" json:"order_sync_state"`
	Agent               struct {
		Kind      string  `yaml:"kind" json:"kind"`
		OrderSize float64 `yaml:"order_size" json:"order_size"`
		Seed      int64   `yaml:"seed" json:"seed"`
	} `yaml:"agent" json:"agent"`
	Risk struct {
		MaxConsecutiveErrors int     `yaml:"max_consecutive_errors" json:"max_consecutive_errors"`
		DailyLossLimit       float64 `yaml:"daily_loss_limit" json:"daily_loss_limit"`
	} `yaml:"risk" json:"risk"`
	Storage struct {
		SecretsDB       string `yaml:"secrets_db" json:"secrets_db"`
		SnapshotDir     string `yaml:"snapshot_dir" json:"snapshot_dir"`
		SnapshotBackend string `yaml:"snapshot_backend" json:"snapshot_backend"`
		JournalPath     string `yaml:"journal_path" json:"journal_path"`
	} `yaml:"storage" json:"storage"`
	ControlPlane struct {
		Listen         string   `yaml:"listen" json:"listen"`
		AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	} `yaml:"control_plane" json:"control_plane"`
	Metrics struct {
		Listen string `yaml:"listen" json:"listen"`
	} `yaml:"metrics" json:"metrics"`
	Log struct {
		Level string `yaml:"level" json:"level"`
		Dir   string `yaml:"dir" json:"dir"`
	} `yaml:"log" json:"log"`
	Proxy  string `yaml:"proxy" json:"proxy"`
	DryRun *bool  `yaml:"dry_run" json:"dry_run"`
}

var globalConfig *Config
var configFilePath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// Get 获取全局配置（如果已加载）
func Get() *Config {
	return globalConfig
}

// Load 从已设置的路径加载配置
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile 从指定文件加载配置，优先级：配置文件 > 环境变量 > 默认值
// filePath 为空时只使用环境变量和默认值
func LoadFromFile(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	dryRun := parseBoolEnv("DRY_RUN", true)
	if cf.DryRun != nil {
		dryRun = *cf.DryRun
	}

	restTimeout := pickInt(cf.REST.TimeoutSeconds, parseIntEnv("BITFLYER_API_TIMEOUT", 10))

	config := &Config{
		APIKey:             pickString(cf.APIKey, getEnv("BITFLYER_API_KEY", "")),
		APISecret:          pickString(cf.APISecret, getEnv("BITFLYER_API_SECRET", "")),
		ProductCode:        pickString(cf.ProductCode, getEnv("PRODUCT_CODE", defaultProductCode)),
		LegalCurrencyCode:  pickString(cf.LegalCurrencyCode, getEnv("LEGAL_CURRENCY_CODE", "JPY")),
		CryptoCurrencyCode: pickString(cf.CryptoCurrencyCode, getEnv("CRYPTO_CURRENCY_CODE", "BTC")),
		Stream: StreamConfig{
			URL:             pickString(cf.Stream.URL, getEnv("BITFLYER_WEBSOCKET_URL", defaultStreamURL)),
			PublicChannels:  pickList(cf.Stream.PublicChannels, parseListEnv("BITFLYER_PUBLIC_CHANNELS", []string{defaultPublicChannel})),
			PrivateChannels: pickList(cf.Stream.PrivateChannels, parseListEnv("BITFLYER_PRIVATE_CHANNELS", []string{defaultPrivateChannel})),
			PauseBufferSize: pickInt(cf.Stream.PauseBufferSize, parseIntEnv("PAUSE_BUFFER_SIZE", defaultPauseBufferSize)),
		},
		REST: RESTConfig{
			BaseURL: pickString(cf.REST.BaseURL, getEnv("BITFLYER_API_BASE_URL", defaultRESTBaseURL)),
			Timeout: time.Duration(restTimeout) * time.Second,
		},
		BatchInterval:  pickInt(cf.BatchInterval, parseIntEnv("BATCH_INTERVAL", defaultBatchInterval)),
		HealthInterval: pickInt(cf.HealthCheckInterval, parseIntEnv("HEALTH_CHECK_INTERVAL", defaultHealthInterval)),
		DataBufferSize: pickInt(cf.DataBufferSize, parseIntEnv("DATA_BUFFER_SIZE", defaultDataBufferSize)),
		OrderSyncState: strings.ToUpper(pickString(cf.OrderSyncState, getEnv("ORDER_SYNC_STATE", "ACTIVE"))),
		Agent: AgentConfig{
			Kind:      strings.ToLower(pickString(cf.Agent.Kind, getEnv("AGENT_KIND", "hold"))),
			OrderSize: pickFloat(cf.Agent.OrderSize, parseFloatEnv("AGENT_ORDER_SIZE", 0.01)),
			Seed:      cf.Agent.Seed,
		},
		Risk: RiskConfig{
			MaxConsecutiveErrors: pickInt(cf.Risk.MaxConsecutiveErrors, parseIntEnv("RISK_MAX_CONSECUTIVE_ERRORS", 5)),
			DailyLossLimit:       pickFloat(cf.Risk.DailyLossLimit, parseFloatEnv("RISK_DAILY_LOSS_LIMIT", 0)),
		},
		Storage: StorageConfig{
			SecretsDB:       pickString(cf.Storage.SecretsDB, getEnv("SECRETS_DB", "")),
			SecretsKey:      getEnv("SECRETS_KEY", ""),
			SnapshotDir:     pickString(cf.Storage.SnapshotDir, getEnv("SNAPSHOT_DIR", "data/snapshots")),
			SnapshotBackend: strings.ToLower(pickString(cf.Storage.SnapshotBackend, getEnv("SNAPSHOT_BACKEND", "badger"))),
			JournalPath:     pickString(cf.Storage.JournalPath, getEnv("JOURNAL_PATH", "data/journal.db")),
		},
		ControlPlane: ControlPlaneConfig{
			Listen:         pickString(cf.ControlPlane.Listen, getEnv("CONTROL_PLANE_LISTEN", "127.0.0.1:8090")),
			AllowedOrigins: pickList(cf.ControlPlane.AllowedOrigins, parseListEnv("CONTROL_PLANE_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"})),
		},
		MetricsListen: pickString(cf.Metrics.Listen, getEnv("METRICS_LISTEN", "")),
		Log: LogConfig{
			Level: pickString(cf.Log.Level, getEnv("LOG_LEVEL", "info")),
			Dir:   pickString(cf.Log.Dir, getEnv("LOG_DIR", "logs")),
		},
		ProxyURL: pickString(cf.Proxy, getEnv("PROXY_URL", "")),
		DryRun:   dryRun,
	}

	globalConfig = config
	configFilePath = filePath
	return config, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// SecretReader 凭证来源
type SecretReader interface {
	GetString(key string) (string, bool, error)
}

// FillCredentials 用凭证库补齐缺失的 API key / secret，已有的值不覆盖
func (c *Config) FillCredentials(r SecretReader, prefix string) error {
	fill := func(dst *string, name string) error {
		if *dst != "" {
			return nil
		}
		v, ok, err := r.GetString(prefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = strings.TrimSpace(v)
		}
		return nil
	}
	if err := fill(&c.APIKey, "BITFLYER_API_KEY"); err != nil {
		return err
	}
	return fill(&c.APISecret, "BITFLYER_API_SECRET")
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("BITFLYER_API_KEY 未配置")
	}
	if c.APISecret == "" {
		return fmt.Errorf("BITFLYER_API_SECRET 未配置")
	}
	if c.Stream.URL == "" {
		return fmt.Errorf("BITFLYER_WEBSOCKET_URL 未配置")
	}
	if c.REST.BaseURL == "" {
		return fmt.Errorf("BITFLYER_API_BASE_URL 未配置")
	}
	if len(c.Stream.PublicChannels) == 0 && len(c.Stream.PrivateChannels) == 0 {
		return fmt.Errorf("至少需要订阅一个频道")
	}
	if c.BatchInterval <= 0 {
		return fmt.Errorf("BATCH_INTERVAL 必须大于 0")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL 必须大于 0")
	}
	if c.DataBufferSize <= 0 {
		return fmt.Errorf("DATA_BUFFER_SIZE 必须大于 0")
	}
	if c.Stream.PauseBufferSize < 0 {
		return fmt.Errorf("PAUSE_BUFFER_SIZE 不能为负数")
	}
	if !agentKinds[c.Agent.Kind] {
		return fmt.Errorf("不支持的 AGENT_KIND: %s", c.Agent.Kind)
	}
	if c.Agent.OrderSize <= 0 {
		return fmt.Errorf("AGENT_ORDER_SIZE 必须大于 0")
	}
	if !snapshotBackends[c.Storage.SnapshotBackend] {
		return fmt.Errorf("不支持的 SNAPSHOT_BACKEND: %s", c.Storage.SnapshotBackend)
	}
	return nil
}

func pickString(fileValue, fallback string) string {
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

func pickInt(fileValue, fallback int) int {
	if fileValue != 0 {
		return fileValue
	}
	return fallback
}

func pickFloat(fileValue, fallback float64) float64 {
	if fileValue != 0 {
		return fileValue
	}
	return fallback
}

func pickList(fileValue, fallback []string) []string {
	if len(fileValue) > 0 {
		return fileValue
	}
	return fallback
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseListEnv 解析逗号分隔的环境变量
func parseListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseFloatEnv 解析浮点数环境变量
func parseFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
