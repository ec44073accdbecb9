package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/TomokaItou/voice-training/internal/config"
	"github.com/TomokaItou/voice-training/internal/logging"
)

// commonFlags are shared by analyze and serve.
type commonFlags struct {
	configPath string
	logLevel   string
	dev        bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file (defaults apply when empty)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")
	fs.BoolVar(&c.dev, "dev", false, "human readable development logging")
}

// load reads the configuration and builds the logger.
func (c *commonFlags) load() (config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return config.Config{}, nil, err
		}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.dev {
		cfg.Log.Development = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, logger, nil
}
