// Package config loads the capture configuration surface from a YAML
// file via viper, the same loading idiom the original JamCapture tool
// used for its own (much larger) configuration surface.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/audiolibrelab/jamcapture/internal/capture"
	"github.com/audiolibrelab/jamcapture/internal/cryptoseal"
)

// EncryptionConfig describes the optional demo AES-256-GCM encryptor.
type EncryptionConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	KeyHex  string `mapstructure:"key_hex" yaml:"key_hex,omitempty"`
	KeyID   string `mapstructure:"key_id" yaml:"key_id,omitempty"`
}

// Config is the on-disk/CLI-overridable configuration surface. Its
// fields are exactly those recognized by capture.Configuration.
type Config struct {
	SampleRate         float64          `mapstructure:"sample_rate" yaml:"sample_rate"`
	BitDepth           int              `mapstructure:"bit_depth" yaml:"bit_depth"`
	Channels           int              `mapstructure:"channels" yaml:"channels"`
	OutputDir          string           `mapstructure:"output_dir" yaml:"output_dir"`
	MaxDurationSeconds int              `mapstructure:"max_duration_seconds" yaml:"max_duration_seconds,omitempty"`
	MicDeviceID        string           `mapstructure:"mic_device_id" yaml:"mic_device_id,omitempty"`
	EnableMic          bool             `mapstructure:"enable_mic" yaml:"enable_mic"`
	EnableSystem       bool             `mapstructure:"enable_system" yaml:"enable_system"`
	Encryption         EncryptionConfig `mapstructure:"encryption" yaml:"encryption,omitempty"`
}

// defaultConfig mirrors the capture configuration's documented defaults.
var defaultConfig = Config{
	SampleRate:   48000,
	BitDepth:     16,
	Channels:     2,
	OutputDir:    filepath.Join(os.Getenv("HOME"), "Audio", "Recordings"),
	EnableMic:    true,
	EnableSystem: true,
}

// Load reads configFile (YAML) via viper, merging values over
// defaultConfig. An empty configFile yields the defaults untouched.
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig

	if configFile == "" {
		return &cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
	}

	return &cfg, nil
}

// ToCaptureConfiguration translates Config into a capture.Configuration,
// constructing a cryptoseal.Encryptor when encryption is enabled.
func (c *Config) ToCaptureConfiguration() (capture.Configuration, error) {
	cfg := capture.Configuration{
		SampleRate:   c.SampleRate,
		BitDepth:     c.BitDepth,
		Channels:     c.Channels,
		OutputDir:    c.OutputDir,
		MicDeviceID:  c.MicDeviceID,
		EnableMic:    c.EnableMic,
		EnableSystem: c.EnableSystem,
	}
	if c.MaxDurationSeconds > 0 {
		cfg.MaxDuration = time.Duration(c.MaxDurationSeconds) * time.Second
	}

	if c.Encryption.Enabled {
		key, err := hex.DecodeString(c.Encryption.KeyHex)
		if err != nil {
			return capture.Configuration{}, fmt.Errorf("decode encryption.key_hex: %w", err)
		}
		enc, err := cryptoseal.New(key, c.Encryption.KeyID)
		if err != nil {
			return capture.Configuration{}, fmt.Errorf("construct encryptor: %w", err)
		}
		cfg.Encryptor = enc
	}

	return cfg, nil
}
