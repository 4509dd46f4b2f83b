// Package config loads the deployment configuration from config.yaml and
// GATEHOUSE_* environment overrides. The loaded struct is injected into
// every constructor; nothing in this module reads configuration globally.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Token       TokenConfig    `mapstructure:"token"`
	CSRF        CSRFConfig     `mapstructure:"csrf"`
	Cookies     CookieConfig   `mapstructure:"cookies"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Database    DatabaseConfig `mapstructure:"database"`
	OAuth       OAuthConfig    `mapstructure:"oauth"`
	Signup      SignupConfig   `mapstructure:"signup"`
	Frontend    FrontendConfig `mapstructure:"frontend"`
}

// IsDevelopment reports whether the deployment runs without TLS-only
// cookies.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// TokenConfig holds the codec secret and the compact TTL specs parsed by
// token.ParseTTL.
type TokenConfig struct {
	Secret     string `mapstructure:"secret"`
	Issuer     string `mapstructure:"issuer"`
	AccessTTL  string `mapstructure:"access_ttl"`
	RefreshTTL string `mapstructure:"refresh_ttl"`
}

type CSRFConfig struct {
	Secret string `mapstructure:"secret"`
}

type CookieConfig struct {
	// MaxAge is a compact TTL spec. Deliberately long by default: the
	// cookie must outlive the token expiry for the refresh branches to
	// ever see an expired token.
	MaxAge string `mapstructure:"max_age"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type OAuthConfig struct {
	Provider     string `mapstructure:"provider"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type SignupConfig struct {
	CodeSecret string `mapstructure:"code_secret"`
	CodeDigest string `mapstructure:"code_digest"`
	SessionTTL string `mapstructure:"session_ttl"`
}

type FrontendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Load reads config.yaml from the working directory or /etc/gatehouse,
// applies environment overrides, and validates the required secrets.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gatehouse")

	v.SetEnvPrefix("GATEHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// env-only configuration is fine
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("token.secret is required")
	}
	if cfg.CSRF.Secret == "" {
		return nil, fmt.Errorf("csrf.secret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	// Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("token.secret", "")
	v.SetDefault("csrf.secret", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_url", "")
	v.SetDefault("signup.code_secret", "")
	v.SetDefault("signup.code_digest", "")
	v.SetDefault("token.issuer", "gatehouse")
	v.SetDefault("token.access_ttl", "15m")
	v.SetDefault("token.refresh_ttl", "7d")
	v.SetDefault("cookies.max_age", "365d")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "gh")
	v.SetDefault("database.path", "gatehouse.db")
	v.SetDefault("oauth.provider", "google")
	v.SetDefault("signup.session_ttl", "5m")
	v.SetDefault("frontend.base_url", "http://localhost:3000")
}
