// Package config loads the modtok CLI configuration with the usual
// precedence: command-line flags, then environment (MODTOK_ prefix), then an
// optional YAML config file, then defaults. The sub-tokenizer construction
// records can only come from the config file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/modtok/internal/idspace"
)

type Config struct {
	// Tokenizers is the ordered list of construction records; order decides
	// ID assignment, so it is significant.
	Tokenizers []TokenizerSpec `mapstructure:"tokenizers"`

	Out               string `mapstructure:"out"`
	MaxSpecialTokenID int64  `mapstructure:"max_special_token_id"`
	MaxTokenID        int64  `mapstructure:"max_token_id"`
	PadToken          string `mapstructure:"pad_token"`
	MaxLen            int    `mapstructure:"max_len"`
	LogLevel          string `mapstructure:"log_level"`
}

// TokenizerSpec is one construction input record.
type TokenizerSpec struct {
	Name         string `mapstructure:"name"`
	TokenizerID  int    `mapstructure:"tokenizer_id"`
	SourceVocab  string `mapstructure:"source_vocab"`
	DerivedVocab string `mapstructure:"derived_vocab"`
	MaxLen       int    `mapstructure:"max_len"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Out:      "modular",
		PadToken: "<PAD>",
		LogLevel: "info",
	}
}

// Capacity translates the two optional bounds into the allocator's tagged
// capacity configuration.
func (c Config) Capacity() (idspace.Capacity, error) {
	return idspace.FromBounds(c.MaxSpecialTokenID, c.MaxTokenID)
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("out", defaults.Out, "Directory the unified vocabulary is saved to")
	fs.Int64("max-special-token-id", defaults.MaxSpecialTokenID, "Exclusive upper bound on special-token global IDs (0 = unset)")
	fs.Int64("max-token-id", defaults.MaxTokenID, "Exclusive upper bound on all global IDs (0 = unset)")
	fs.String("pad-token", defaults.PadToken, "Special token used for padding")
	fs.Int("max-len", defaults.MaxLen, "Overall encoding length for truncation and padding (0 = unset)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("MODTOK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("modtok")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	seenName := make(map[string]bool, len(cfg.Tokenizers))
	seenID := make(map[int]bool, len(cfg.Tokenizers))
	for _, t := range cfg.Tokenizers {
		if t.Name == "" {
			return fmt.Errorf("tokenizer record with id %d has no name", t.TokenizerID)
		}
		if seenName[t.Name] {
			return fmt.Errorf("tokenizer name %q listed twice", t.Name)
		}
		if seenID[t.TokenizerID] {
			return fmt.Errorf("tokenizer_id %d listed twice", t.TokenizerID)
		}
		seenName[t.Name] = true
		seenID[t.TokenizerID] = true
	}
	if _, err := idspace.FromBounds(cfg.MaxSpecialTokenID, cfg.MaxTokenID); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("out", c.Out)
	v.SetDefault("max_special_token_id", c.MaxSpecialTokenID)
	v.SetDefault("max_token_id", c.MaxTokenID)
	v.SetDefault("pad_token", c.PadToken)
	v.SetDefault("max_len", c.MaxLen)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("max_special_token_id", "max-special-token-id")
	v.RegisterAlias("max_token_id", "max-token-id")
	v.RegisterAlias("pad_token", "pad-token")
	v.RegisterAlias("max_len", "max-len")
	v.RegisterAlias("log_level", "log-level")
}
