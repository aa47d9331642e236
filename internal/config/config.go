package config

import "time"

// Config is the root configuration for a feedd instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	KIS       KISConfig       `yaml:"kis"`
	Database  DBConfig        `yaml:"database"`
	Feed      FeedConfig      `yaml:"feed"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Server    ServerConfig    `yaml:"server"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// KISConfig holds upstream (Korea Investment & Securities) API settings.
type KISConfig struct {
	ApprovalURL  string        `yaml:"approval_url"`  // Token endpoint (POST)
	WebsocketURL string        `yaml:"websocket_url"` // Realtime feed endpoint
	AppKey       string        `yaml:"appkey"`
	SecretKey    string        `yaml:"secretkey"`
	Timeout      time.Duration `yaml:"timeout"`        // Token request timeout
	KeyValidity  time.Duration `yaml:"key_validity"`   // Assumed approval-key lifetime
	SafetyMargin time.Duration `yaml:"safety_margin"`  // Refresh this long before assumed expiry
	RefreshEvery time.Duration `yaml:"refresh_every"`  // Proactive refresh period
}

// DBConfig holds the PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FeedConfig holds feed-client settings.
type FeedConfig struct {
	Channel          string        `yaml:"channel"`      // Data channel tr_id (e.g. "H0STCNT0")
	ProbeSymbol      string        `yaml:"probe_symbol"` // Always-on liquidity probe symbol
	SyncInterval     time.Duration `yaml:"sync_interval"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// BroadcastConfig holds broadcast-hub settings.
type BroadcastConfig struct {
	Path         string        `yaml:"path"` // Websocket path served to viewers
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ServerConfig holds the HTTP server settings (broadcast path + health).
type ServerConfig struct {
	Port int `yaml:"port"`
}
