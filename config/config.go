// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

// Package config loads client settings for did:pkarr tools from a TOML file
// and DID_PKARR_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/aumos-ai/did-pkarr/document"
	"github.com/aumos-ai/did-pkarr/pkarr"
	"github.com/aumos-ai/did-pkarr/resolver"
)

// Environment variables that override file settings.
const (
	EnvRelays     = "DID_PKARR_RELAYS"
	EnvTimeout    = "DID_PKARR_TIMEOUT"
	EnvMaxRetries = "DID_PKARR_MAX_RETRIES"
	EnvMostRecent = "DID_PKARR_MOST_RECENT"
	EnvCacheSize  = "DID_PKARR_CACHE_SIZE"
	EnvCacheTTL   = "DID_PKARR_CACHE_TTL"
	EnvStrict     = "DID_PKARR_STRICT"
)

// Config holds the settings shared by the CLI and library users.
type Config struct {
	// Relays are pkarr relay base URLs.
	Relays []string `toml:"relays"`
	// Timeout bounds each relay HTTP request.
	Timeout time.Duration `toml:"timeout"`
	// MaxRetries is the number of retries per relay after the first attempt.
	MaxRetries uint64 `toml:"max_retries"`
	// MostRecent makes resolution wait for every relay.
	MostRecent bool `toml:"most_recent"`
	// Strict rejects documents carrying unknown relationship bits.
	Strict bool  `toml:"strict"`
	Cache  Cache `toml:"cache"`
}

// Cache configures the resolver cache. A zero Size disables it.
type Cache struct {
	Size int           `toml:"size"`
	TTL  time.Duration `toml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Relays:     append([]string(nil), pkarr.DefaultRelays...),
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		Cache:      Cache{TTL: 5 * time.Minute},
	}
}

// Load reads path over the defaults and then applies the environment. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: %s: unknown keys %v", path, undecoded)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromEnv returns the defaults with the environment applied.
func FromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRelays); ok {
		c.Relays = nil
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				c.Relays = append(c.Relays, r)
			}
		}
	}

	var err error
	if v, ok := lookup(EnvTimeout); ok {
		if c.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
	}
	if v, ok := lookup(EnvMaxRetries); ok {
		if c.MaxRetries, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("config: %s: %w", EnvMaxRetries, err)
		}
	}
	if v, ok := lookup(EnvMostRecent); ok {
		if c.MostRecent, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvMostRecent, err)
		}
	}
	if v, ok := lookup(EnvStrict); ok {
		if c.Strict, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvStrict, err)
		}
	}
	if v, ok := lookup(EnvCacheSize); ok {
		if c.Cache.Size, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvCacheSize, err)
		}
	}
	if v, ok := lookup(EnvCacheTTL); ok {
		if c.Cache.TTL, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvCacheTTL, err)
		}
	}
	return nil
}

// Validate reports settings no client can be built from.
func (c *Config) Validate() error {
	if len(c.Relays) == 0 {
		return fmt.Errorf("config: at least one relay is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("config: cache size must not be negative, got %d", c.Cache.Size)
	}
	if c.Cache.Size > 0 && c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache ttl must be positive when the cache is enabled")
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	// Durations are written as strings so the output loads back.
	out := struct {
		Relays     []string `toml:"relays"`
		Timeout    string   `toml:"timeout"`
		MaxRetries uint64   `toml:"max_retries"`
		MostRecent bool     `toml:"most_recent"`
		Strict     bool     `toml:"strict"`
		Cache      struct {
			Size int    `toml:"size"`
			TTL  string `toml:"ttl"`
		} `toml:"cache"`
	}{
		Relays:     c.Relays,
		Timeout:    c.Timeout.String(),
		MaxRetries: c.MaxRetries,
		MostRecent: c.MostRecent,
		Strict:     c.Strict,
	}
	out.Cache.Size = c.Cache.Size
	out.Cache.TTL = c.Cache.TTL.String()

	if err := toml.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// RelayClient builds a relay client from the relay settings.
func (c *Config) RelayClient(logger *slog.Logger) (*pkarr.RelayClient, error) {
	opts := []pkarr.Option{
		pkarr.WithRelays(c.Relays...),
		pkarr.WithTimeout(c.Timeout),
		pkarr.WithMaxRetries(c.MaxRetries),
	}
	if logger != nil {
		opts = append(opts, pkarr.WithLogger(logger))
	}
	return pkarr.NewRelayClient(opts...)
}

// Resolver builds a resolver over client from the cache and decoding settings.
func (c *Config) Resolver(client pkarr.Client, logger *slog.Logger) *resolver.Resolver {
	opts := []resolver.Option{
		resolver.WithDecodeOptions(document.WithRelationshipStrictness(c.Strict)),
	}
	if logger != nil {
		opts = append(opts, resolver.WithLogger(logger))
	}
	if c.Cache.Size > 0 {
		opts = append(opts, resolver.WithCache(c.Cache.Size, c.Cache.TTL))
	}
	return resolver.New(client, opts...)
}
