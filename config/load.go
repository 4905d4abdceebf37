package config

import (
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	yaml "go.yaml.in/yaml/v3"
)

// Load builds the configuration in layers: defaults, the yaml file at path
// (skipped when path is empty), then environment variables. A .env file in
// the working directory is loaded into the environment first when present.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, errors.Wrap(err, "load .env")
	}

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return cfg, errors.Wrap(err, "read config file")
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse config file")
		}

		logrus.WithField("path", path).Debug("loaded config file")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Dispatch.JitterMin <= 0 || c.Dispatch.JitterMax <= c.Dispatch.JitterMin {
		return errors.Errorf("invalid dispatch jitter window [%s, %s)", c.Dispatch.JitterMin, c.Dispatch.JitterMax)
	}

	switch c.Storage.Driver {
	case "redis", "sqlite", "memory":
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}
