package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TechXTT/fluentdao/internal/core"
)

// EnvPrefix prefixes the environment variables that override settings, e.g.
// FLUENTDAO_DSN or FLUENTDAO_MAX_OPEN_CONNS.
const EnvPrefix = "FLUENTDAO"

// Config holds the connection settings shared by the CLI and the library.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Verbose         bool
}

func Default() *Config {
	return &Config{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Flags defines one flag per setting on fs, storing into c.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Driver, "driver", c.Driver, "database/sql driver (postgres, mysql, sqlite3, sqlserver); guessed from the DSN when empty")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "data source name; DATABASE_URL is used when empty")
	fs.IntVar(&c.MaxOpenConns, "max-open-conns", c.MaxOpenConns, "maximum open connections")
	fs.IntVar(&c.MaxIdleConns, "max-idle-conns", c.MaxIdleConns, "maximum idle connections")
	fs.DurationVar(&c.ConnMaxLifetime, "conn-max-lifetime", c.ConnMaxLifetime, "maximum connection lifetime")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "log every statement")
}

// Load reads .env, then applies defaults < config file < environment.
// An empty path skips the config file.
func Load(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	c := Default()
	fs := pflag.NewFlagSet("fluentdao", pflag.ContinueOnError)
	c.Flags(fs)
	fs.String("config", path, "configuration file")
	if err := SetAll(viper.New(), fs); err != nil {
		return nil, err
	}
	c.Resolve()
	return c, nil
}

// LoadEnv loads the given dotenv files, or .env, into the process
// environment. Missing files are skipped and variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// SetAll takes a FlagSet to be the definition of all configuration options,
// as well as their defaults. It then reads from the command line, the
// environment, and a config file (if the "config" flag names one), and
// applies the configuration in that priority order.
//
// Environment variables are capitalized flag names with dashes replaced by
// underscores, prefixed with EnvPrefix and an underscore.
func SetAll(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %w", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}

// Resolve fills the DSN from DATABASE_URL and guesses the driver when they
// were not configured.
func (c *Config) Resolve() {
	if c.DSN == "" {
		c.DSN = os.Getenv("DATABASE_URL")
	}
	if c.Driver == "" {
		c.Driver = core.DriverFor(c.DSN)
	}
}

var knownDrivers = map[string]bool{
	"postgres":  true,
	"mysql":     true,
	"sqlite3":   true,
	"sqlserver": true,
}

func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New("no DSN configured: set --dsn, FLUENTDAO_DSN or DATABASE_URL")
	}
	if !knownDrivers[c.Driver] {
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.MaxIdleConns > c.MaxOpenConns && c.MaxOpenConns > 0 {
		return fmt.Errorf("max-idle-conns (%d) exceeds max-open-conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}
