package config

import "time"

// Messaging definition messaging_service YAML structure
type Messaging struct {
	Port string

	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`

	Presence PresenceConfig `mapstructure:"presence"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// PresenceConfig definition presence registry TTL setting
type PresenceConfig struct {
	ConnectionTTL time.Duration `mapstructure:"connection_ttl"`
	OnlineTTL     time.Duration `mapstructure:"online_ttl"`
}

// CacheConfig definition recent-message cache and unread counter setting
type CacheConfig struct {
	RecentLimit int           `mapstructure:"recent_limit"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
