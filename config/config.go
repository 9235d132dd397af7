// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the relicpool node configuration.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/oracle"
)

// EnvPrefix prefixes environment overrides, e.g. RELICPOOL_NETWORK.
const EnvPrefix = "RELICPOOL"

// Config holds the node settings.
type Config struct {
	DataDir    string `yaml:"datadir" mapstructure:"datadir"`
	Network    string `yaml:"network" mapstructure:"network"`
	LogLevel   string `yaml:"loglevel" mapstructure:"loglevel"`
	ParamsFile string `yaml:"paramsfile" mapstructure:"paramsfile"`

	// VRFKey is the hex randomness provider key. Empty until keygen runs.
	VRFKey string `yaml:"vrfkey" mapstructure:"vrfkey"`

	// Pricing inputs for the static oracle: pool reserves in whole units and
	// the native price in USD.
	ReserveAsset   string `yaml:"reserveasset" mapstructure:"reserveasset"`
	ReserveNative  string `yaml:"reservenative" mapstructure:"reservenative"`
	NativeUSDPrice string `yaml:"nativeusdprice" mapstructure:"nativeusdprice"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		Network:        "mainnet",
		LogLevel:       "info",
		ReserveAsset:   "1000000",
		ReserveNative:  "1000",
		NativeUSDPrice: "2000",
	}
}

// DefaultDataDir returns the default data directory path (~/.relicpool).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relicpool"
	}
	return filepath.Join(home, ".relicpool")
}

// ConfigPath returns the configuration file path within dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DBPath returns the state database path within dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "pool.db")
}

// LoadConfig reads the YAML file at path. Keys absent from the file keep
// their defaults; RELICPOOL_* environment variables override both.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	def := DefaultConfig()
	for key, val := range map[string]string{
		"datadir":        def.DataDir,
		"network":        def.Network,
		"loglevel":       def.LogLevel,
		"paramsfile":     def.ParamsFile,
		"vrfkey":         def.VRFKey,
		"reserveasset":   def.ReserveAsset,
		"reservenative":  def.ReserveNative,
		"nativeusdprice": def.NativeUSDPrice,
	} {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	return Config{
		DataDir:        v.GetString("datadir"),
		Network:        v.GetString("network"),
		LogLevel:       v.GetString("loglevel"),
		ParamsFile:     v.GetString("paramsfile"),
		VRFKey:         v.GetString("vrfkey"),
		ReserveAsset:   v.GetString("reserveasset"),
		ReserveNative:  v.GetString("reservenative"),
		NativeUSDPrice: v.GetString("nativeusdprice"),
	}, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	var b strings.Builder
	b.WriteString("# Relicpool Configuration\n")
	b.WriteString("# Generated by relicpool. Edit as needed.\n\n")
	b.Write(body)

	return os.WriteFile(path, []byte(b.String()), 0600)
}

// Reserves returns the configured pool reserves in 18-decimal base units.
func (c Config) Reserves() (oracle.Reserves, error) {
	asset, err := forge.ParseUnits(c.ReserveAsset)
	if err != nil {
		return oracle.Reserves{}, fmt.Errorf("%w: reserveasset: %w", ErrInvalidAmount, err)
	}
	native, err := forge.ParseUnits(c.ReserveNative)
	if err != nil {
		return oracle.Reserves{}, fmt.Errorf("%w: reservenative: %w", ErrInvalidAmount, err)
	}
	return oracle.Reserves{Asset: asset, Native: native}, nil
}

// NativePrice returns the configured native price in feed units
// (oracle.PriceDecimals decimals).
func (c Config) NativePrice() (*big.Int, error) {
	r, ok := new(big.Rat).SetString(c.NativeUSDPrice)
	if !ok || r.Sign() <= 0 {
		return nil, fmt.Errorf("%w: nativeusdprice %q", ErrInvalidAmount, c.NativeUSDPrice)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(oracle.PriceDecimals), nil)))
	v := new(big.Int).Quo(r.Num(), r.Denom())
	if v.Sign() == 0 {
		return nil, fmt.Errorf("%w: nativeusdprice %q rounds to zero", ErrInvalidAmount, c.NativeUSDPrice)
	}
	return v, nil
}

// Mainnet reports whether holder addresses use the mainnet prefix.
func (c Config) Mainnet() bool { return c.Network == "mainnet" }
