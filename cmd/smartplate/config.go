package main

import (
	"fmt"
	"time"

	"smartplate/internal/location"
	"smartplate/pkg/types"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	return c, nil
}

func newLogger(config *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if config.Environment == "development" {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func locationOptions(config *types.Config) location.Options {
	opts := location.DefaultOptions()
	if config.LocationTimeoutSec > 0 {
		opts.Timeout = time.Duration(config.LocationTimeoutSec) * time.Second
	}
	opts.MaxAge = time.Duration(config.LocationMaxAgeSec) * time.Second
	return opts
}
