// Package config loads msgledger settings from defaults, an optional YAML
// file, MSGLEDGER_* environment variables and command-line overrides, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

const (
	envPrefix  = "MSGLEDGER"
	configName = "msgledger"
)

// Config is the resolved configuration.
type Config struct {
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Program ProgramConfig `mapstructure:"program"`
	Rent    RentConfig    `mapstructure:"rent"`
	Log     LogConfig     `mapstructure:"log"`

	// Keypair is the default signer keypair file.
	Keypair string `mapstructure:"keypair" validate:"required"`
}

// LedgerConfig selects the storage backend.
type LedgerConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite badger"`
	// Path is the SQLite file or the Badger directory. Empty picks a
	// driver-specific default in the working directory.
	Path string `mapstructure:"path"`
}

// ProgramConfig describes the deployed message program.
type ProgramConfig struct {
	ID          string `mapstructure:"id"           validate:"required,pubkey"`
	RecordSpace int64  `mapstructure:"record_space" validate:"gte=52"`
}

// RentConfig overrides the rent parameters.
type RentConfig struct {
	LamportsPerByteYear int64 `mapstructure:"lamports_per_byte_year" validate:"gte=0"`
	ExemptionYears      int64 `mapstructure:"exemption_years"        validate:"gte=0"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

var defaults = map[string]any{
	"ledger.driver":               DriverSQLite,
	"ledger.path":                 "",
	"program.id":                  message.DefaultProgramID,
	"program.record_space":        message.DefaultSpace,
	"rent.lamports_per_byte_year": ledger.DefaultLamportsPerByteYear,
	"rent.exemption_years":        ledger.DefaultExemptionYears,
	"log.level":                   "info",
}

// Load resolves the configuration. configFile may be empty, in which case
// msgledger.yaml is looked up in the working directory and in
// $HOME/.config/msgledger; a missing file is not an error. overrides are
// dotted keys set last, typically from command-line flags.
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetDefault("keypair", defaultKeypairPath())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfiguration, configFile, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "msgledger"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("configuration file loaded", "path", used)
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultPath(cfg.Ledger.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	if err := validate.RegisterValidation("pubkey", validatePubkey); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

// LedgerRent returns the configured rent parameters.
func (c *Config) LedgerRent() ledger.Rent {
	return ledger.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionYears:      c.Rent.ExemptionYears,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultPath returns the storage location used when ledger.path is unset.
func DefaultPath(driver string) string {
	if driver == DriverBadger {
		return "msgledger.badger"
	}
	return "msgledger.db"
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "msgledger", "id.json")
}

func validatePubkey(fl validator.FieldLevel) bool {
	_, err := ledger.ParsePublicKey(fl.Field().String())
	return err == nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "pubkey":
		return fmt.Sprintf("%s must be a base58 public key, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
