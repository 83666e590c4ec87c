package config

import "time"

// StoreDriver message store backend
type StoreDriver string

const (
	// StoreMongo persist messages in mongo
	StoreMongo StoreDriver = "mongo"
	// StoreMemory keep messages in process (local dev / tests)
	StoreMemory StoreDriver = "memory"
)

// Chat definition chat_service YAML structure
type Chat struct {
	Port           string          `mapstructure:"port"`
	Store          StoreDriver     `mapstructure:"store"`
	AllowedOrigins string          `mapstructure:"allowed_origins"`
	Pprof          bool            `mapstructure:"pprof"`
	MongoSQL       MongoConfig     `mapstructure:"mongo"`
	Redis          RedisConfig     `mapstructure:"redis"`
	PostgreSQL     DatabaseConfig  `mapstructure:"pg"`
	JWT            JWTConfig       `mapstructure:"jwt"`
	Websocket      WebsocketConfig `mapstructure:"websocket"`
	Directory      DirectoryConfig `mapstructure:"directory"`
}

// ChatClient definition chat_client flags / YAML structure
type ChatClient struct {
	Server string `mapstructure:"server"`
	Token  string `mapstructure:"token"`
	Self   string `mapstructure:"self"`
	Peer   string `mapstructure:"peer"`
}

// JWTConfig definition token validation
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// WebsocketConfig definition websocket connection setting
type WebsocketConfig struct {
	// PingInterval seconds between server pings
	PingInterval int `mapstructure:"ping_interval"`
	// SendBuffer pending frames per connection before pushes are dropped
	SendBuffer int `mapstructure:"send_buffer"`
	// MaxMessageSize read limit in bytes
	MaxMessageSize int64 `mapstructure:"max_message_size"`
}

// DirectoryConfig definition chat directory setting
type DirectoryConfig struct {
	// CacheTTL seconds a resolved display name stays in redis, 0 disables the cache
	CacheTTL int `mapstructure:"cache_ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RedisDB int  `mapstructure:"redis_db"`
}

// MongoConfig definition mongo setting
type MongoConfig struct {
	DatabaseConfig `mapstructure:",squash"`
	Collection     string `mapstructure:"collection"`
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

// Enabled report whether a host was configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// PingPeriod ping interval as duration, default 30s
func (w WebsocketConfig) PingPeriod() time.Duration {
	if w.PingInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.PingInterval) * time.Second
}

// Buffer send buffer size, default 64
func (w WebsocketConfig) Buffer() int {
	if w.SendBuffer <= 0 {
		return 64
	}
	return w.SendBuffer
}

// ReadLimit max inbound frame, default 16KiB
func (w WebsocketConfig) ReadLimit() int64 {
	if w.MaxMessageSize <= 0 {
		return 16 << 10
	}
	return w.MaxMessageSize
}

// TTL cache ttl as duration
func (d DirectoryConfig) TTL() time.Duration {
	return time.Duration(d.CacheTTL) * time.Second
}
