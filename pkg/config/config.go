package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tradepulse/custody/pkg/logger"
)

type Config struct {
	Server        ServerConfig           `yaml:"server"`
	Database      DatabaseConfig         `yaml:"database"`
	Logger        logger.Config          `yaml:"logger"`
	Chains        map[string]ChainConfig `yaml:"chains"` // network -> chain settings
	Webhook       WebhookConfig          `yaml:"webhook"`
	Retry         RetryConfig            `yaml:"retry"`
	Withdrawal    WithdrawalConfig       `yaml:"withdrawal"`
	Notifications NotificationsConfig    `yaml:"notifications"`
	JWT           JWTConfig              `yaml:"jwt"`
	WebSocket     WebSocketConfig        `yaml:"websocket"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type ChainConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	ChainID        int64         `yaml:"chain_id"`
	TokenAddress   string        `yaml:"token_address"`
	TokenDecimals  int32         `yaml:"token_decimals"`
	PrivateKey     string        `yaml:"private_key"`
	GasFloorGwei   int64         `yaml:"gas_floor_gwei"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type WebhookConfig struct {
	ProviderBaseURL string        `yaml:"provider_base_url"`
	ProviderAPIKey  string        `yaml:"provider_api_key"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	SignatureHeader string        `yaml:"signature_header"`
	SecretTTL       time.Duration `yaml:"secret_ttl"`
}

type RetryConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxRetries    int           `yaml:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
}

type WithdrawalConfig struct {
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	StaleAfter      time.Duration `yaml:"stale_after"`
	ReconcileEvery  time.Duration `yaml:"reconcile_every"`
}

type NotificationsConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Webhook.SignatureHeader == "" {
		c.Webhook.SignatureHeader = "X-Webhook-Signature"
	}
	if c.Webhook.SecretTTL == 0 {
		c.Webhook.SecretTTL = 5 * time.Minute
	}
	if c.Retry.SweepInterval == 0 {
		c.Retry.SweepInterval = time.Second
	}
	if c.Retry.BatchSize == 0 {
		c.Retry.BatchSize = 50
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 10
	}
	if c.Retry.BackoffBase == 0 {
		c.Retry.BackoffBase = time.Second
	}
	if c.Withdrawal.DuplicateWindow == 0 {
		c.Withdrawal.DuplicateWindow = 60 * time.Second
	}
	if c.Withdrawal.StaleAfter == 0 {
		c.Withdrawal.StaleAfter = 30 * time.Minute
	}
	if c.Withdrawal.ReconcileEvery == 0 {
		c.Withdrawal.ReconcileEvery = 5 * time.Minute
	}
	for network, chain := range c.Chains {
		if chain.ConfirmTimeout == 0 {
			chain.ConfirmTimeout = 90 * time.Second
		}
		if chain.PollInterval == 0 {
			chain.PollInterval = 3 * time.Second
		}
		if chain.GasFloorGwei == 0 {
			chain.GasFloorGwei = 5
		}
		c.Chains[network] = chain
	}
}
