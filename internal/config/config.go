package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Ingest       IngestConfig       `mapstructure:"ingest"`
	Registration RegistrationConfig `mapstructure:"registration"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// IngestConfig carries the shared secret expected from the upstream signup
// collaborator.
type IngestConfig struct {
	Token string `mapstructure:"token"`
}

// MergePolicy names how the read side reconciles the dedicated registration
// table with legacy accounts rows.
type MergePolicy string

const (
	// MergePolicyFallback serves accounts rows only when the dedicated table
	// holds nothing for the requested stage.
	MergePolicyFallback MergePolicy = "fallback"
	// MergePolicyMerge unions both sources, dedicated rows winning per account.
	MergePolicyMerge MergePolicy = "merge"
)

type RegistrationConfig struct {
	MergePolicy     MergePolicy   `mapstructure:"merge_policy"`
	CredentialRetry int           `mapstructure:"credential_retry"`
	ListCacheTTL    time.Duration `mapstructure:"list_cache_ttl"`
	NotifyTimeout   time.Duration `mapstructure:"notify_timeout"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("registration.merge_policy", string(MergePolicyFallback))
	viper.SetDefault("registration.credential_retry", 3)
	viper.SetDefault("registration.list_cache_ttl", 30*time.Second)
	viper.SetDefault("registration.notify_timeout", 10*time.Second)
	viper.SetDefault("registration.bcrypt_cost", 10)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment overrides for containerised deployments
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		config.Database.Port, _ = strconv.Atoi(port)
	}
	if token := os.Getenv("INGEST_TOKEN"); token != "" {
		config.Ingest.Token = token
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}

	if config.Registration.MergePolicy != MergePolicyFallback &&
		config.Registration.MergePolicy != MergePolicyMerge {
		return nil, fmt.Errorf("invalid merge policy: %s", config.Registration.MergePolicy)
	}

	return &config, nil
}
