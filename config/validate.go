// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"encoding/hex"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.VRFKey != "" {
		if err := validateKey(cfg.VRFKey); err != nil {
			return err
		}
	}

	if _, err := cfg.Reserves(); err != nil {
		return err
	}
	if _, err := cfg.NativePrice(); err != nil {
		return err
	}

	return nil
}

// validateKey checks that key is a 32-byte hex string.
func validateKey(key string) error {
	b, err := hex.DecodeString(key)
	if err != nil || len(b) != 32 {
		return ErrInvalidKey
	}
	return nil
}
