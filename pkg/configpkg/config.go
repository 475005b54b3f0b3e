// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environement variables.
type Config struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBSource      string `mapstructure:"DB_SOURCE"`
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	// RedisAddress is optional; empty disables the idempotency result cache.
	RedisAddress string `mapstructure:"REDIS_ADDRESS"`
	// LockTimeout bounds row-lock waits inside a transfer transaction.
	LockTimeout time.Duration `mapstructure:"LOCK_TIMEOUT"`
	// TxMaxRetries bounds internal retries on serialization and version conflicts.
	TxMaxRetries        int           `mapstructure:"TX_MAX_RETRIES"`
	IdempotencyCacheTTL time.Duration `mapstructure:"IDEMPOTENCY_CACHE_TTL"`
	Environement        string        `mapstructure:"GO_ENV"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = viper.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	if c.LockTimeout == 0 {
		c.LockTimeout = 3 * time.Second
	}

	if c.TxMaxRetries == 0 {
		c.TxMaxRetries = 3
	}

	if c.IdempotencyCacheTTL == 0 {
		c.IdempotencyCacheTTL = 24 * time.Hour
	}

	return c, nil
}
