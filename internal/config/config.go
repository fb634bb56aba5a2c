// Package config loads the client's connection and session settings from
// layered sources: CLI flags, environment variables, a YAML file, and
// built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/nfs4c/internal/bytesize"
)

// Config is the client's full configuration surface.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the transport and session parameters of the
// connection to a single NFS server.
type ServerConfig struct {
	// Address is the "host:port" the client dials (NFS port, default 2049).
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// ConnectTimeout bounds the initial TCP dial.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required,gt=0" yaml:"connect_timeout"`

	// SlotTableCapacity is the configured number of session slots. It is
	// loaded and validated but not passed to the NFSv4 client, which
	// always requests 64 slots at CREATE_SESSION and sizes its slot
	// allocator to 64.
	SlotTableCapacity int `mapstructure:"slot_table_capacity" validate:"required,gt=0,lte=1024" yaml:"slot_table_capacity"`

	// MaxRecordSize is the configured limit for a single reassembled RPC
	// record. Accepts human-readable sizes ("1Mi", "64KB") as well as plain
	// byte counts. It is loaded and validated only; the RPC transport
	// always applies rpc.MaxPacketSize.
	MaxRecordSize bytesize.ByteSize `mapstructure:"max_record_size" validate:"required,gt=0" yaml:"max_record_size"`
}

// AuthConfig carries a configured AUTH_SYS identity. It is loaded and
// validated only: the NFSv4 client sends a fixed AUTH_SYS credential (uid 0,
// gid 0, machine name "go-nfs4"), and the NFSv3, MOUNT and portmap clients
// send AUTH_NONE.
type AuthConfig struct {
	UID         uint32   `mapstructure:"uid" yaml:"uid"`
	GID         uint32   `mapstructure:"gid" yaml:"gid"`
	GIDs        []uint32 `mapstructure:"gids" yaml:"gids"`
	MachineName string   `mapstructure:"machine_name" validate:"required" yaml:"machine_name"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
}

// DefaultConfig returns the configuration used when no flag, environment
// variable, or config file overrides a field.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           "127.0.0.1:2049",
			ConnectTimeout:    10 * time.Second,
			SlotTableCapacity: 64,
			MaxRecordSize:     1024 * 1024,
		},
		Auth: AuthConfig{
			UID:         0,
			GID:         0,
			MachineName: "nfs4c",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// BindFlags registers the CLI flags that can override every Config field
// except auth.gids, for a cobra command's persistent flag set.
func BindFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.String("server.address", d.Server.Address, "NFS server address (host:port)")
	flags.Duration("server.connect_timeout", d.Server.ConnectTimeout, "TCP connect timeout")
	flags.Int("server.slot_table_capacity", d.Server.SlotTableCapacity, "session slot table capacity")
	flags.String("server.max_record_size", d.Server.MaxRecordSize.String(), "maximum RPC record size (e.g. 1Mi, 64KB)")
	flags.Uint32("auth.uid", d.Auth.UID, "AUTH_SYS uid")
	flags.Uint32("auth.gid", d.Auth.GID, "AUTH_SYS gid")
	flags.String("auth.machine_name", d.Auth.MachineName, "AUTH_SYS machine name")
	flags.String("logging.level", d.Logging.Level, "log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("logging.format", d.Logging.Format, "log format (text, json)")
}

// Load builds a Config from, in increasing precedence: defaults, the YAML
// file at configPath (if non-empty and present), the NFS4C_* environment
// variables, and flags (if non-nil).
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.connect_timeout", d.Server.ConnectTimeout)
	v.SetDefault("server.slot_table_capacity", d.Server.SlotTableCapacity)
	v.SetDefault("server.max_record_size", d.Server.MaxRecordSize)
	v.SetDefault("auth.uid", d.Auth.UID)
	v.SetDefault("auth.gid", d.Auth.GID)
	v.SetDefault("auth.machine_name", d.Auth.MachineName)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvPrefix("NFS4C")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg to path as YAML, with file permissions restricted to the
// owner, so a captured config never leaks any auth material it carries.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// configDecodeHooks returns the combined decode hook mapstructure needs for
// this Config's non-primitive field types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeDecodeHook converts strings and plain numbers to bytesize.ByteSize,
// so config sources can write "1Gi", "64KB", or a raw byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
