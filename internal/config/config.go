package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	// KickThreshold is the number of distinct non-admin kickers that bans a member.
	KickThreshold int           `mapstructure:"kick_threshold" yaml:"kick_threshold"`
	HistoryLimit  int           `mapstructure:"history_limit" yaml:"history_limit"`
	TypingTTL     time.Duration `mapstructure:"typing_ttl" yaml:"typing_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "channelhub.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "channelhub",
		JWTAudience:        "channelhub",
		JWTTTL:             24 * time.Hour,
		MaxMessageBytes:    1 << 20,
		RateLimitPerMinute: 120,
		KickThreshold:      3,
		HistoryLimit:       100,
		TypingTTL:          5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.KickThreshold != 0 {
		c.KickThreshold = other.KickThreshold
	}
}
