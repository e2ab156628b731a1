package config

import (
	"fmt"
	"time"
)

const (
	DefaultRateLimitCount    = 10
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultHistoryLimit      = 10000
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultTokenTTL          = 60 * time.Second
	DefaultMaxRetries        = 5
	DefaultBaseDelay         = time.Second
	DefaultDialTimeout       = 10 * time.Second
	DefaultRoom              = "general"
)

// Config holds the server runtime settings.
type Config struct {
	ServerAddr        string
	AdminPassword     string
	AllowedOrigins    []string
	RateLimitCount    int
	RateLimitWindow   time.Duration
	HistoryLimit      int
	HeartbeatInterval time.Duration
	TokenTTL          time.Duration
}

// NewConfig validates the address and fills zero-valued tunables with
// defaults. An empty admin password disables the password check entirely.
func NewConfig(serverAddr, adminPassword string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	cfg := &Config{
		ServerAddr:        serverAddr,
		AdminPassword:     adminPassword,
		AllowedOrigins:    allowedOrigins,
		RateLimitCount:    DefaultRateLimitCount,
		RateLimitWindow:   DefaultRateLimitWindow,
		HistoryLimit:      DefaultHistoryLimit,
		HeartbeatInterval: DefaultHeartbeatInterval,
		TokenTTL:          DefaultTokenTTL,
	}

	return cfg, nil
}

// ClientConfig holds the terminal client's connection settings.
type ClientConfig struct {
	ServerAddr  string
	Username    string
	Password    string
	Room        string
	MaxRetries  int
	BaseDelay   time.Duration
	DialTimeout time.Duration
}

func NewClientConfig(serverAddr, username, password, room string) (*ClientConfig, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if room == "" {
		room = DefaultRoom
	}

	return &ClientConfig{
		ServerAddr:  serverAddr,
		Username:    username,
		Password:    password,
		Room:        room,
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		DialTimeout: DefaultDialTimeout,
	}, nil
}
