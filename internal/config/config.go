// Package config loads the daemon's TOML configuration file and layers
// environment-variable overrides on top, grounded on quaero's TOML config
// format (github.com/pelletier/go-toml/v2) in place of the teacher's
// flag-only main.go — a long-running service with Mongo/Redis/AMQP
// endpoints and a configurable site list outgrows command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Site is one crawl target read from the [[sites]] TOML array. Sites are
// operator-configured crawl targets, not crawl-produced data — spec.md's
// data model names no Site entity, so this lives in configuration rather
// than the Store.
type Site struct {
	Domain            string `toml:"domain"`
	MaxDepth          int    `toml:"max_depth"`
	PageLimit         int    `toml:"page_limit"`
	EnableJSRendering bool   `toml:"enable_js_rendering"`
}

// Config is the daemon's full runtime configuration.
type Config struct {
	Mongo struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"mongo"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	AMQP struct {
		URL string `toml:"url"`
	} `toml:"amqp"`

	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`

	Admin struct {
		Token string `toml:"token"`
	} `toml:"admin"`

	Worker struct {
		Concurrency   int           `toml:"concurrency"`
		PollInterval  time.Duration `toml:"poll_interval"`
		ShutdownGrace time.Duration `toml:"shutdown_grace"`
	} `toml:"worker"`

	Sites []Site `toml:"sites"`
}

// defaults match SPEC_FULL.md §8/§5's conservative-by-default posture:
// operators opt into larger crawls per-site via config, not a bigger global
// default.
func defaults() Config {
	var c Config
	c.Mongo.URI = "mongodb://localhost:27017"
	c.Mongo.Database = "crawlcore"
	c.Redis.Addr = "localhost:6379"
	c.AMQP.URL = "amqp://localhost:5672"
	c.HTTP.Addr = ":8080"
	c.Worker.Concurrency = 3
	c.Worker.PollInterval = 5 * time.Second
	c.Worker.ShutdownGrace = 10 * time.Second
	return c
}

// Load reads path as TOML over top of defaults, then applies env-var
// overrides. path may be empty to use defaults plus env only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRAWLCORE_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("CRAWLCORE_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("CRAWLCORE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CRAWLCORE_AMQP_URL"); v != "" {
		cfg.AMQP.URL = v
	}
	if v := os.Getenv("CRAWLCORE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CRAWLCORE_ADMIN_TOKEN"); v != "" {
		cfg.Admin.Token = v
	}
}
