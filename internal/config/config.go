// Package config loads the cibaop configuration from a YAML file,
// overlaid by environment variables. A .env file is read first
// so it can provide those variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zitadel/ciba/pkg/op"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	CacheMemory     = "memory"
	CacheRedis      = "redis"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		// Issuer is the static issuer identifier. When empty, the issuer
		// is derived from the Forwarded or Host header of each request.
		Issuer          string        `yaml:"issuer"`
		DevMode         bool          `yaml:"dev_mode"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		LogLevel        string        `yaml:"log_level"`
		LogFormat       string        `yaml:"log_format"`
		Metrics         bool          `yaml:"metrics"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Kind     string `yaml:"kind"`
		RedisURL string `yaml:"redis_url"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"cache"`

	CIBA CIBA `yaml:"ciba"`

	Clients []Client `yaml:"clients"`
	Users   []User   `yaml:"users"`
}

// CIBA holds the backchannel settings, unset values take the provider defaults.
type CIBA struct {
	DefaultRequestedExpiry time.Duration `yaml:"default_requested_expiry"`
	MinRequestedExpiry     time.Duration `yaml:"min_requested_expiry"`
	MaxRequestedExpiry     time.Duration `yaml:"max_requested_expiry"`
	PollInterval           time.Duration `yaml:"poll_interval"`
	BindingMessagePattern  string        `yaml:"binding_message_pattern"`
	// SweeperInterval disables the sweeper when negative.
	SweeperInterval     time.Duration `yaml:"sweeper_interval"`
	SweeperChunkSize    int           `yaml:"sweeper_chunk_size"`
	SweeperConcurrency  int           `yaml:"sweeper_concurrency"`
	NotificationTimeout time.Duration `yaml:"notification_timeout"`
	StoreTimeout        time.Duration `yaml:"store_timeout"`
	ReplayTTL           time.Duration `yaml:"replay_ttl"`
	RetentionPeriod     time.Duration `yaml:"retention_period"`
	UserCodeUnsupported bool          `yaml:"user_code_unsupported"`
}

// Client is a statically registered client.
type Client struct {
	ID                   string   `yaml:"id"`
	Secret               string   `yaml:"secret"`
	GrantTypes           []string `yaml:"grant_types"`
	DeliveryMode         string   `yaml:"delivery_mode"`
	NotificationEndpoint string   `yaml:"notification_endpoint"`
	SigningAlg           string   `yaml:"signing_alg"`
	UserCode             bool     `yaml:"user_code"`
	// JWKSFile points to a JSON Web Key Set with the request object keys.
	JWKSFile string `yaml:"jwks_file"`
}

// User is an end-user known to the static directory.
type User struct {
	ID         string   `yaml:"id"`
	LoginHints []string `yaml:"login_hints"`
	UserCode   string   `yaml:"user_code"`
}

var durationKeys = yamlDurationKeys(reflect.TypeOf(Config{}), make(map[string]bool))

func yamlDurationKeys(t reflect.Type, keys map[string]bool) map[string]bool {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		switch {
		case field.Type == reflect.TypeOf(time.Duration(0)):
			keys[name] = true
		case field.Type.Kind() == reflect.Struct:
			yamlDurationKeys(field.Type, keys)
		}
	}
	return keys
}

// UnmarshalYAML reads plain integers of duration fields as seconds,
// like the environment overrides do.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	secondsToDurations(node)
	type plain Config
	return node.Decode((*plain)(c))
}

func secondsToDurations(node *yaml.Node) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, n := range node.Content {
			secondsToDurations(n)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if durationKeys[key.Value] && value.Kind == yaml.ScalarNode && value.ShortTag() == "!!int" {
				value.Value += "s"
				value.Tag = "!!str"
				continue
			}
			secondsToDurations(value)
		}
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := new(Config)
	c.applyDefaults()
	return c
}

// LoadDotEnv loads the given .env files into the environment,
// skipping files which do not exist. Variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the YAML file at path, if path is not empty,
// applies the environment overrides and validates the result.
func Load(path string) (*Config, error) {
	c := new(Config)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":9998"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = CacheMemory
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("config: cache.redis_url is required for redis")
		}
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	if c.Server.Issuer != "" {
		if err := op.ValidateIssuer(c.Server.Issuer, c.Server.DevMode); err != nil {
			return fmt.Errorf("config: server.issuer: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.Clients))
	for _, client := range c.Clients {
		if client.ID == "" {
			return errors.New("config: client without id")
		}
		if seen[client.ID] {
			return fmt.Errorf("config: duplicate client %q", client.ID)
		}
		seen[client.ID] = true
	}
	return c.Backchannel().Validate()
}

// Backchannel returns the provider settings, completed with the defaults.
func (c *Config) Backchannel() op.BackchannelConfig {
	return op.BackchannelConfig{
		DefaultRequestedExpiry:     c.CIBA.DefaultRequestedExpiry,
		MinRequestedExpiry:         c.CIBA.MinRequestedExpiry,
		MaxRequestedExpiry:         c.CIBA.MaxRequestedExpiry,
		PollInterval:               c.CIBA.PollInterval,
		BindingMessagePattern:      c.CIBA.BindingMessagePattern,
		SweeperInterval:            c.CIBA.SweeperInterval,
		SweeperChunkSize:           c.CIBA.SweeperChunkSize,
		SweeperConcurrency:         c.CIBA.SweeperConcurrency,
		NotificationTimeout:        c.CIBA.NotificationTimeout,
		StoreTimeout:               c.CIBA.StoreTimeout,
		ReplayTTL:                  c.CIBA.ReplayTTL,
		RetentionPeriod:            c.CIBA.RetentionPeriod,
		UserCodeParameterSupported: !c.CIBA.UserCodeUnsupported,
		DevMode:                    c.Server.DevMode,
	}.WithDefaults()
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// getEnvDur accepts Go durations and plain seconds, so that
// CIBA_SWEEPER_INTERVAL=-1 disables the sweeper.
func getEnvDur(key string) (time.Duration, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second, true
	}
	return 0, false
}

func (c *Config) applyEnvOverrides() {
	// SERVER
	if v, ok := getEnvStr("CIBA_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("CIBA_ISSUER"); ok {
		c.Server.Issuer = v
	}
	if v, ok := getEnvBool("CIBA_DEV_MODE"); ok {
		c.Server.DevMode = v
	}
	if v, ok := getEnvStr("CIBA_LOG_LEVEL"); ok {
		c.Server.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CIBA_LOG_FORMAT"); ok {
		c.Server.LogFormat = strings.ToLower(v)
	}
	if v, ok := getEnvBool("CIBA_METRICS"); ok {
		c.Server.Metrics = v
	}

	// STORAGE
	if v, ok := getEnvStr("CIBA_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("CIBA_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}

	// CACHE
	if v, ok := getEnvStr("CIBA_CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CIBA_REDIS_URL"); ok {
		c.Cache.RedisURL = v
	}
	if v, ok := getEnvStr("CIBA_CACHE_PREFIX"); ok {
		c.Cache.Prefix = v
	}

	// CIBA
	if v, ok := getEnvDur("CIBA_DEFAULT_REQUESTED_EXPIRY"); ok {
		c.CIBA.DefaultRequestedExpiry = v
	}
	if v, ok := getEnvDur("CIBA_MIN_REQUESTED_EXPIRY"); ok {
		c.CIBA.MinRequestedExpiry = v
	}
	if v, ok := getEnvDur("CIBA_MAX_REQUESTED_EXPIRY"); ok {
		c.CIBA.MaxRequestedExpiry = v
	}
	if v, ok := getEnvDur("CIBA_POLL_INTERVAL"); ok {
		c.CIBA.PollInterval = v
	}
	if v, ok := getEnvDur("CIBA_SWEEPER_INTERVAL"); ok {
		c.CIBA.SweeperInterval = v
	}
	if v, ok := getEnvInt("CIBA_SWEEPER_CHUNK_SIZE"); ok {
		c.CIBA.SweeperChunkSize = v
	}
	if v, ok := getEnvDur("CIBA_NOTIFICATION_TIMEOUT"); ok {
		c.CIBA.NotificationTimeout = v
	}
	if v, ok := getEnvDur("CIBA_RETENTION_PERIOD"); ok {
		c.CIBA.RetentionPeriod = v
	}
}
