package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chaintask-client/pkg/secrets"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every externally configured value the client needs. It is
// built once at startup and passed down explicitly; nothing reads the
// environment after Load returns.
type Config struct {
	// Backend REST API, including any path prefix (e.g. http://host:5001/api).
	ServerURL string `env:"SERVER_URL" envDefault:"http://localhost:5001/api"`
	// Realtime websocket endpoint for "tasks changed" notifications.
	RealtimeURL string `env:"REALTIME_URL" envDefault:"ws://localhost:5001/ws"`

	// Expected chain. 97 is the BNB Smart Chain testnet.
	ChainID         int64    `env:"CHAIN_ID" envDefault:"97"`
	ContractAddress string   `env:"CONTRACT_ADDRESS,required"`
	RPCUrls         []string `env:"RPC_URLS" envSeparator:"," envDefault:"https://data-seed-prebsc-1-s1.binance.org:8545/"`
	ExplorerURL     string   `env:"EXPLORER_URL" envDefault:"https://testnet.bscscan.com"`
	NativeSymbol    string   `env:"NATIVE_SYMBOL" envDefault:"tBNB"`

	// Local wallet. An empty WALLET_ACCOUNT selects the first keystore account.
	KeystoreDir      string `env:"KEYSTORE_DIR"`
	WalletAccount    string `env:"WALLET_ACCOUNT"`
	WalletPassphrase string `env:"WALLET_PASSPHRASE"`

	// Persisted client state (session token, identity, last wallet address).
	StateFile string `env:"STATE_FILE"`

	GatewayPort        string   `env:"GATEWAY_PORT" envDefault:"8081"`
	CorsAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	RuntimeEnv  string `env:"RUNTIME_ENV" envDefault:"local"`
	AwsSecretID string `env:"AWS_SECRET_ID"`
	AwsRegion   string `env:"AWS_REGION"`

	// Optional redis snapshot cache. Empty host disables it.
	RedisHost     string        `env:"REDIS_HOST"`
	RedisPort     string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername string        `env:"REDIS_USERNAME"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SnapshotTTL   time.Duration `env:"SNAPSHOT_TTL" envDefault:"15s"`

	// Optional SMTP settings for divergence alert mail.
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	EmailAddress  string `env:"EMAIL_ADDRESS"`
	EmailPassword string `env:"EMAIL_PASSWORD"`
	AlertEmail    string `env:"ALERT_EMAIL"`
}

// Load reads .env when present, parses the environment and fills in
// derived defaults. With RUNTIME_ENV=aws the wallet passphrase is resolved
// from AWS Secrets Manager instead of the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	if cfg.KeystoreDir == "" {
		cfg.KeystoreDir = filepath.Join(home, ".chaintask", "keystore")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(home, ".chaintask", "state.json")
	}

	if cfg.RuntimeEnv == "aws" && cfg.WalletPassphrase == "" {
		if cfg.AwsSecretID == "" || cfg.AwsRegion == "" {
			return nil, fmt.Errorf("AWS_SECRET_ID and AWS_REGION must be set when RUNTIME_ENV=aws")
		}
		passphrase, err := secrets.WalletPassphrase(context.Background(), cfg.AwsSecretID, cfg.AwsRegion)
		if err != nil {
			return nil, fmt.Errorf("fetch wallet passphrase: %w", err)
		}
		cfg.WalletPassphrase = passphrase
	}

	return cfg, nil
}

// RedisAddress returns host:port or "" when the cache is disabled.
func (c *Config) RedisAddress() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

// MailEnabled reports whether divergence alert mail is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.EmailAddress != "" && c.AlertEmail != ""
}
