// Package config loads bookshelf settings from flags, BOOKSHELF_* environment
// variables, .env files and an optional YAML config file, in that order of
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BOOKSHELF"

// Store kinds.
const (
	StoreCSV      = "csv"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ConfigFile string

	DataPath        string
	Store           string
	DSN             string
	CreateIfMissing bool

	Addr          string
	LogLevel      string
	MetricsEnable bool
	MetricsToken  string
	MutationLimit int

	// ServerURL switches the book commands to a running server.
	ServerURL string
}

// Keys bound to flags and environment variables.
const (
	KeyConfig        = "config"
	KeyData          = "data"
	KeyStore         = "store"
	KeyDSN           = "dsn"
	KeyCreate        = "create"
	KeyAddr          = "addr"
	KeyLogLevel      = "log_level"
	KeyMetrics       = "metrics_enabled"
	KeyMetricsToken  = "metrics_token"
	KeyMutationLimit = "mutation_limit"
	KeyServer        = "server"
)

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyData, "books.csv")
	v.SetDefault(KeyStore, StoreCSV)
	v.SetDefault(KeyCreate, true)
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetrics, false)
	v.SetDefault(KeyMutationLimit, 120)
}

// Load reads .env files, the environment and the config file into v and
// returns the resulting Config. Flags must already be bound to v.
func Load(v *viper.Viper) (*Config, error) {
	loadEnvFiles()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if f := v.GetString(KeyConfig); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", f, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".bookshelf")
		// A missing default config file is fine.
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		ConfigFile:      v.ConfigFileUsed(),
		DataPath:        v.GetString(KeyData),
		Store:           strings.ToLower(v.GetString(KeyStore)),
		DSN:             v.GetString(KeyDSN),
		CreateIfMissing: v.GetBool(KeyCreate),
		Addr:            v.GetString(KeyAddr),
		LogLevel:        v.GetString(KeyLogLevel),
		MetricsEnable:   v.GetBool(KeyMetrics),
		MetricsToken:    v.GetString(KeyMetricsToken),
		MutationLimit:   v.GetInt(KeyMutationLimit),
		ServerURL:       v.GetString(KeyServer),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreCSV:
		if c.DataPath == "" {
			return fmt.Errorf("%s is required for the csv store", KeyData)
		}
	case StoreSQLite, StorePostgres:
		if c.DSN == "" {
			return fmt.Errorf("%s is required for the %s store", KeyDSN, c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.MutationLimit < 0 {
		return fmt.Errorf("%s must not be negative", KeyMutationLimit)
	}
	return nil
}

// loadEnvFiles loads .env.local and .env. godotenv never overrides a set
// variable, so the environment wins over .env.local, which wins over .env.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}
