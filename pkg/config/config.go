package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hryang/cachegate/pkg/datastore"
	"github.com/hryang/cachegate/pkg/gateway"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	kAddr            = "addr"
	kCapacity        = "capacity"
	kDebug           = "debug"
	kStoreType       = "store.type"
	kStoreURL        = "store.url"
	kStoreSQLiteFile = "store.sqlite_file"
)

// Config is the service configuration.
type Config struct {
	Addr     string
	Capacity int
	Debug    bool
	Store    datastore.Config
}

// NewViper creates a viper instance reading CACHEGATE_* environment variables.
// REDIS_CONNECTION_URL is accepted for the redis address as well.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CACHEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv(kStoreURL, "CACHEGATE_STORE_URL", "REDIS_CONNECTION_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind REDIS_CONNECTION_URL: %w", err)
	}

	v.SetDefault(kAddr, "0.0.0.0:3000")
	v.SetDefault(kCapacity, gateway.DefaultCapacity)
	v.SetDefault(kDebug, false)
	v.SetDefault(kStoreType, string(datastore.Redis))
	return v, nil
}

// ReadDotEnv exports the variables of a dotenv file into the process
// environment. A missing file is not an error. Variables already present in
// the environment take precedence.
func ReadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, name := range env.AllKeys() {
		// dotenv keys come back lower-cased.
		envName := strings.ToUpper(name)
		if _, ok := os.LookupEnv(envName); ok {
			continue
		}
		if err := os.Setenv(envName, env.GetString(name)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	// GetInt turns garbage into 0, so parse explicitly to report the raw value.
	capacity, err := cast.ToIntE(v.Get(kCapacity))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid capacity %q: %w", v.GetString(kCapacity), err)
	}

	c := &Config{
		Addr:     v.GetString(kAddr),
		Capacity: capacity,
		Debug:    v.GetBool(kDebug),
		Store: datastore.Config{
			Type:   datastore.DatastoreType(strings.ToLower(v.GetString(kStoreType))),
			URL:    v.GetString(kStoreURL),
			DBName: v.GetString(kStoreSQLiteFile),
		},
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	return c.Store.Validate()
}
