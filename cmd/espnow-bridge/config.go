package main

import (
	"github.com/BurntSushi/toml"

	"github.com/robotalks/espnow.go/pkg/espnow"
	"github.com/robotalks/espnow.go/pkg/espnow/env"
)

// Config is the bridge configuration, loaded from a TOML file.
type Config struct {
	// Addr is the bridge node address on both links. When empty, a
	// stable address is derived from the machine identity.
	Addr string `toml:"addr"`

	Hub  HubConfig  `toml:"hub"`
	MQTT MQTTConfig `toml:"mqtt"`
}

// HubConfig selects the websocket hub side of the bridge.
type HubConfig struct {
	URL string `toml:"url"`
}

// MQTTConfig selects the broker side of the bridge.
type MQTTConfig struct {
	URL string `toml:"url"`
}

// DefaultConfig provides the out-of-box settings.
func DefaultConfig() Config {
	return Config{
		Hub:  HubConfig{URL: "ws://localhost:6053"},
		MQTT: MQTTConfig{URL: "mqtt://localhost:1883/espnow/"},
	}
}

// LoadConfig reads the configuration file on top of the defaults.
func LoadConfig(fn string) (*Config, error) {
	conf := DefaultConfig()
	if fn != "" {
		if _, err := toml.DecodeFile(fn, &conf); err != nil {
			return nil, err
		}
	}
	return &conf, nil
}

// NodeAddr resolves the configured bridge address.
func (c *Config) NodeAddr() (espnow.Addr, error) {
	if c.Addr == "" {
		return env.LocalAddr(), nil
	}
	return espnow.ParseAddr(c.Addr)
}
