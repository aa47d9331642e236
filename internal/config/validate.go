package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.KIS.ApprovalURL == "" {
		return errors.New("kis.approval_url is required")
	}
	if c.KIS.WebsocketURL == "" {
		return errors.New("kis.websocket_url is required")
	}
	if c.KIS.AppKey == "" {
		return errors.New("kis.appkey is required")
	}
	if c.KIS.SecretKey == "" {
		return errors.New("kis.secretkey is required")
	}
	if c.KIS.SafetyMargin >= c.KIS.KeyValidity {
		return fmt.Errorf("kis.safety_margin (%s) must be shorter than kis.key_validity (%s)",
			c.KIS.SafetyMargin, c.KIS.KeyValidity)
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Feed.SyncInterval <= 0 {
		return errors.New("feed.sync_interval must be positive")
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}

	if !strings.HasPrefix(c.Broadcast.Path, "/") {
		return fmt.Errorf("broadcast.path must start with '/', got %q", c.Broadcast.Path)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
