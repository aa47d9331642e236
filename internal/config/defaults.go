package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultKISTimeout      = 10 * time.Second
	DefaultKeyValidity     = 24 * time.Hour
	DefaultSafetyMargin    = 10 * time.Minute
	DefaultRefreshEvery    = time.Hour
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultChannel         = "H0STCNT0"
	DefaultProbeSymbol     = "005930"
	DefaultSyncInterval    = 10 * time.Second
	DefaultHandshake       = 10 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultFeedBufferSize  = 1000
	DefaultBroadcastPath   = "/ws/trade"
	DefaultServerPort      = 8080
)

func (c *Config) applyDefaults() {
	// Upstream defaults
	if c.KIS.Timeout == 0 {
		c.KIS.Timeout = DefaultKISTimeout
	}
	if c.KIS.KeyValidity == 0 {
		c.KIS.KeyValidity = DefaultKeyValidity
	}
	if c.KIS.SafetyMargin == 0 {
		c.KIS.SafetyMargin = DefaultSafetyMargin
	}
	if c.KIS.RefreshEvery == 0 {
		c.KIS.RefreshEvery = DefaultRefreshEvery
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Feed defaults
	if c.Feed.Channel == "" {
		c.Feed.Channel = DefaultChannel
	}
	if c.Feed.ProbeSymbol == "" {
		c.Feed.ProbeSymbol = DefaultProbeSymbol
	}
	if c.Feed.SyncInterval == 0 {
		c.Feed.SyncInterval = DefaultSyncInterval
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshake
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Broadcast defaults
	if c.Broadcast.Path == "" {
		c.Broadcast.Path = DefaultBroadcastPath
	}
	if c.Broadcast.WriteTimeout == 0 {
		c.Broadcast.WriteTimeout = DefaultWriteTimeout
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}
