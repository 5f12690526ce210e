// Package config loads buffer manager parameters from a YAML file via
// viper, the same way the rest of the pack configures its servers.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	DefaultPageSize  = 4096
	DefaultNumFrames = 64
)

// Config holds everything needed to construct a buffer manager.
type Config struct {
	Storage struct {
		PageSize  int    `mapstructure:"page_size"`
		NumFrames int    `mapstructure:"num_frames"`
		TempFile  string `mapstructure:"temp_file"`
		DataDir   string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.PageSize = DefaultPageSize
	cfg.Storage.NumFrames = DefaultNumFrames
	cfg.Storage.TempFile = "./data/pagepool.tmp"
	cfg.Storage.DataDir = "./data"
	return cfg
}

// Load reads a YAML config file at path, falling back to Default() for
// any field the file leaves unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("storage.page_size", def.Storage.PageSize)
	v.SetDefault("storage.num_frames", def.Storage.NumFrames)
	v.SetDefault("storage.temp_file", def.Storage.TempFile)
	v.SetDefault("storage.data_dir", def.Storage.DataDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}
