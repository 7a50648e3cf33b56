package config

import (
	"fmt"

	"github.com/haadi101/lazorpay/pkg/wallet"
)

// Environment variable names for lazorpay configuration
const (
	EnvRelayerURL      = "LAZORPAY_RELAYER_URL"
	EnvWalletAddress   = "LAZORPAY_WALLET_ADDRESS"
	EnvMaxRetries      = "LAZORPAY_MAX_RETRIES"
	EnvBaseDelay       = "LAZORPAY_BASE_DELAY"
	EnvTimeout         = "LAZORPAY_TIMEOUT"
	EnvPersistenceType = "LAZORPAY_PERSISTENCE_TYPE"
	EnvRedisAddress    = "LAZORPAY_REDIS_ADDRESS"
	EnvBadgerPath      = "LAZORPAY_BADGER_PATH"
	EnvVerbose         = "LAZORPAY_VERBOSE"
)

type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeRedis  PersistenceType = "redis"
	PersistenceTypeBadger PersistenceType = "badger"
)

func (p PersistenceType) String() string {
	return string(p)
}

// AppConfig represents the complete configuration for the lazorpay CLI
type AppConfig struct {
	// Relayer endpoint and wallet identity
	RelayerURL    string `json:"relayer_url"`
	WalletAddress string `json:"wallet_address"`

	// Resilience tunables for remote invocations; the single source of truth
	// for retries, backoff and timeouts
	Wallet wallet.Config `json:"wallet"`

	// Submission history storage
	Persistence  PersistenceType `json:"persistence"`
	RedisAddress string          `json:"redis_address,omitempty"`
	BadgerPath   string          `json:"badger_path,omitempty"`

	// Operational settings
	Debug bool `json:"debug"`
}

// Validate validates the application configuration
func (c *AppConfig) Validate() error {
	if c.RelayerURL == "" {
		return fmt.Errorf("relayer URL cannot be empty")
	}
	if c.WalletAddress == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}

	if err := c.Wallet.Validate(); err != nil {
		return fmt.Errorf("invalid wallet config: %w", err)
	}

	switch c.Persistence {
	case PersistenceTypeMemory:
	case PersistenceTypeRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("redis address is required for redis persistence")
		}
	case PersistenceTypeBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("badger path is required for badger persistence")
		}
	default:
		return fmt.Errorf("unsupported persistence type: %s (supported: %s, %s, %s)",
			c.Persistence, PersistenceTypeMemory, PersistenceTypeRedis, PersistenceTypeBadger)
	}

	return nil
}
