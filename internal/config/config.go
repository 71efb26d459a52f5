// Package config loads nodedialogue settings.
//
// Settings come from three layers, later ones winning:
//
//  1. Built-in defaults
//  2. A TOML file: --config, or $XDG_CONFIG_HOME/nodedialogue/config.toml
//     (~/.config/nodedialogue/config.toml) when it exists
//  3. NODEDIALOGUE_* environment variables
//
// Example config.toml:
//
//	dialogue_dir = "Assets/Dialogue"
//	store = "redis"
//	redis_addr = "localhost:6379"
//	http_addr = ":8080"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cyrogem/nodedialogue/pkg/errors"
	"github.com/cyrogem/nodedialogue/pkg/store"
)

const appName = "nodedialogue"

// Config holds every setting. TOML keys match the env variable suffixes in
// lower case.
type Config struct {
	DialogueDir string `toml:"dialogue_dir"` // NODEDIALOGUE_DIALOGUE_DIR (default "Assets/Dialogue")
	Store       string `toml:"store"`        // NODEDIALOGUE_STORE (file|memory|redis|mongo|s3, default file)
	ScriptGUID  string `toml:"script_guid"`  // NODEDIALOGUE_SCRIPT_GUID (default derived from the class name)

	RedisAddr   string `toml:"redis_addr"`   // NODEDIALOGUE_REDIS_ADDR
	RedisPrefix string `toml:"redis_prefix"` // NODEDIALOGUE_REDIS_PREFIX (default "nodedialogue:dialogue:")

	MongoURI        string `toml:"mongo_uri"`        // NODEDIALOGUE_MONGO_URI
	MongoDatabase   string `toml:"mongo_database"`   // NODEDIALOGUE_MONGO_DATABASE (default "nodedialogue")
	MongoCollection string `toml:"mongo_collection"` // NODEDIALOGUE_MONGO_COLLECTION (default "dialogues")

	S3Bucket   string `toml:"s3_bucket"`   // NODEDIALOGUE_S3_BUCKET
	S3Prefix   string `toml:"s3_prefix"`   // NODEDIALOGUE_S3_PREFIX (default "Assets/Dialogue/")
	S3Region   string `toml:"s3_region"`   // NODEDIALOGUE_S3_REGION (default "us-east-1")
	S3Endpoint string `toml:"s3_endpoint"` // NODEDIALOGUE_S3_ENDPOINT (custom endpoint for MinIO)

	HTTPAddr string `toml:"http_addr"` // NODEDIALOGUE_HTTP_ADDR (default ":8080")
	CacheDir string `toml:"cache_dir"` // NODEDIALOGUE_CACHE_DIR (default $XDG_CACHE_HOME/nodedialogue)
	// CacheRedis switches the render cache to Redis at RedisAddr.
	CacheRedis bool `toml:"cache_redis"` // NODEDIALOGUE_CACHE_REDIS
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DialogueDir:     store.DefaultDialogueDir,
		Store:           store.BackendFile,
		RedisPrefix:     store.DefaultRedisPrefix,
		MongoDatabase:   store.DefaultMongoDatabase,
		MongoCollection: store.DefaultMongoCollection,
		S3Prefix:        store.DefaultDialogueDir + "/",
		S3Region:        "us-east-1",
		HTTPAddr:        ":8080",
	}
}

// Load reads path (or the default file when path is empty and the file
// exists), applies the environment and validates the result.
func Load(path string) (*Config, error) {
	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := c.readFile(path, explicit); err != nil {
			return nil, err
		}
	}

	c.applyEnv()
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readFile(path string, required bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		return nil
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DialogueDir = envOrDefault("NODEDIALOGUE_DIALOGUE_DIR", c.DialogueDir)
	c.Store = envOrDefault("NODEDIALOGUE_STORE", c.Store)
	c.ScriptGUID = envOrDefault("NODEDIALOGUE_SCRIPT_GUID", c.ScriptGUID)
	c.RedisAddr = envOrDefault("NODEDIALOGUE_REDIS_ADDR", c.RedisAddr)
	c.RedisPrefix = envOrDefault("NODEDIALOGUE_REDIS_PREFIX", c.RedisPrefix)
	c.MongoURI = envOrDefault("NODEDIALOGUE_MONGO_URI", c.MongoURI)
	c.MongoDatabase = envOrDefault("NODEDIALOGUE_MONGO_DATABASE", c.MongoDatabase)
	c.MongoCollection = envOrDefault("NODEDIALOGUE_MONGO_COLLECTION", c.MongoCollection)
	c.S3Bucket = envOrDefault("NODEDIALOGUE_S3_BUCKET", c.S3Bucket)
	c.S3Prefix = envOrDefault("NODEDIALOGUE_S3_PREFIX", c.S3Prefix)
	c.S3Region = envOrDefault("NODEDIALOGUE_S3_REGION", c.S3Region)
	c.S3Endpoint = envOrDefault("NODEDIALOGUE_S3_ENDPOINT", c.S3Endpoint)
	c.HTTPAddr = envOrDefault("NODEDIALOGUE_HTTP_ADDR", c.HTTPAddr)
	c.CacheDir = envOrDefault("NODEDIALOGUE_CACHE_DIR", c.CacheDir)
	switch strings.ToLower(os.Getenv("NODEDIALOGUE_CACHE_REDIS")) {
	case "1", "true", "yes":
		c.CacheRedis = true
	case "0", "false", "no":
		c.CacheRedis = false
	}
}

// Validate rejects unknown backends and backends missing their settings.
func (c *Config) Validate() error {
	if !slices.Contains(store.Backends, c.Store) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown store %q (must be one of: %s)",
			c.Store, strings.Join(store.Backends, ", "))
	}
	required := map[string][]struct{ key, value string }{
		store.BackendRedis: {{"redis_addr", c.RedisAddr}},
		store.BackendMongo: {{"mongo_uri", c.MongoURI}},
		store.BackendS3:    {{"s3_bucket", c.S3Bucket}},
	}
	for _, r := range required[c.Store] {
		if r.value == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store %q requires %s", c.Store, r.key)
		}
	}
	if c.CacheRedis && c.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache_redis requires redis_addr")
	}
	if c.Store == store.BackendFile && !filepath.IsAbs(c.DialogueDir) {
		if err := errors.ValidatePath(c.DialogueDir); err != nil {
			return err
		}
	}
	return nil
}

// StoreConfig converts the settings for [store.Open].
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:    c.Store,
		Dir:        c.DialogueDir,
		ScriptGUID: c.ScriptGUID,
		Redis:      store.RedisConfig{Addr: c.RedisAddr, Prefix: c.RedisPrefix},
		Mongo: store.MongoConfig{
			URI:        c.MongoURI,
			Database:   c.MongoDatabase,
			Collection: c.MongoCollection,
		},
		S3: store.S3Config{
			Bucket:   c.S3Bucket,
			Prefix:   c.S3Prefix,
			Region:   c.S3Region,
			Endpoint: c.S3Endpoint,
		},
	}
}

// DefaultPath returns the config file location, or "" when no home
// directory can be found.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// defaultCacheDir uses the XDG cache directory (~/.cache/nodedialogue/).
func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
