// Package config assembles process configuration from flags, environment,
// an optional config file and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

const envPrefix = "CRYOVAULT"

// Config is the full option set of the service.
type Config struct {
	ConfigFile string `json:"-" mapstructure:"-"`
	EnvFile    string `json:"-" mapstructure:"-"`
	Dev        bool   `json:"dev" mapstructure:"dev"`

	Server      *ServerOptions      `json:"server" mapstructure:"server"`
	Database    *DatabaseOptions    `json:"database" mapstructure:"database"`
	Ledger      *LedgerOptions      `json:"ledger" mapstructure:"ledger"`
	Reservation *ReservationOptions `json:"reservation" mapstructure:"reservation"`
	Notify      *NotifyOptions      `json:"notify" mapstructure:"notify"`
	Log         *log.Options        `json:"log" mapstructure:"log"`
}

func New() *Config {
	return &Config{
		EnvFile:     ".env",
		Server:      NewServerOptions(),
		Database:    NewDatabaseOptions(),
		Ledger:      NewLedgerOptions(),
		Reservation: NewReservationOptions(),
		Notify:      NewNotifyOptions(),
		Log:         log.NewOptions(),
	}
}

// AddFlags registers every option on fs.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to a YAML, JSON or TOML config file.")
	fs.StringVar(&c.EnvFile, "env-file", c.EnvFile, "Path to a .env file loaded before reading the environment (ignored when missing).")
	fs.BoolVar(&c.Dev, "dev", c.Dev, "Development mode: allows a built-in ledger secret.")
	c.Server.AddFlags(fs)
	c.Database.AddFlags(fs)
	c.Ledger.AddFlags(fs)
	c.Reservation.AddFlags(fs)
	c.Notify.AddFlags(fs)
	c.Log.AddFlags(fs)
}

// Load resolves option values with precedence flag > env > config file >
// default. Environment keys are the flag names upper-cased with dots and
// dashes replaced by underscores under the CRYOVAULT_ prefix, e.g.
// CRYOVAULT_LEDGER_SECRET. DATABASE_URL is honoured as a fallback.
func (c *Config) Load(fs *pflag.FlagSet) error {
	if c.EnvFile != "" {
		if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", c.ConfigFile, err)
		}
	}

	// Flags stay authoritative; viper only fills what the user did not set.
	var applyErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if applyErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, valueString(v, f)); err != nil {
			applyErr = fmt.Errorf("option %s: %w", f.Name, err)
		}
	})
	if applyErr != nil {
		return applyErr
	}

	if !fs.Changed("database.url") && os.Getenv(envPrefix+"_DATABASE_URL") == "" {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			c.Database.URL = url
		}
	}
	if c.Dev && c.Ledger.Secret == "" {
		c.Ledger.Secret = devSecret
	}
	return nil
}

func valueString(v *viper.Viper, f *pflag.Flag) string {
	if f.Value.Type() == "stringSlice" {
		return strings.Join(v.GetStringSlice(f.Name), ",")
	}
	return v.GetString(f.Name)
}

// Validate returns every option error joined together.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.Server.Validate()...)
	errs = append(errs, c.Database.Validate()...)
	errs = append(errs, c.Ledger.Validate()...)
	errs = append(errs, c.Reservation.Validate()...)
	errs = append(errs, c.Notify.Validate()...)
	errs = append(errs, c.Log.Validate()...)
	return errors.Join(errs...)
}
