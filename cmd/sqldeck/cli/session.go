package cli

import (
	"fmt"
	"strings"

	"github.com/sqldeck/sqldeck/internal/config"
	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/driver/known"
	"github.com/sqldeck/sqldeck/internal/errs"
	"github.com/sqldeck/sqldeck/internal/logger"
	"github.com/sqldeck/sqldeck/internal/session"
)

// buildSession resolves flags and the optional profile file into a
// disconnected Session. Connecting is left to the caller so each subcommand
// controls when the first round-trip happens.
func buildSession(flags *connFlags) (*session.Session, error) {
	cfg := session.Config{
		URL:        flags.url,
		Driver:     flags.driverName,
		Username:   flags.username,
		Password:   flags.password,
		Nickname:   flags.nickname,
		Properties: map[string]string{},
		Options: session.Options{
			AutoCommit: flags.autoCommit,
			Isolation:  flags.isolation,
		},
	}
	logCfg := logger.DefaultConfig()

	if flags.configPath != "" {
		file, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		profile, err := file.Profile(flags.profile)
		if err != nil {
			return nil, err
		}

		if cfg.URL == "" {
			cfg.URL = profile.URL
		}
		if cfg.Driver == "" {
			cfg.Driver = profile.Driver
		}
		if cfg.Username == "" {
			cfg.Username = profile.Username
		}
		if cfg.Password == "" {
			cfg.Password = profile.Password
		}
		if cfg.Nickname == "" {
			cfg.Nickname = profile.Nickname
		}
		for k, v := range profile.Properties {
			cfg.Properties[k] = v
		}

		cfg.Options.AutoCommit = file.Options.AutoCommitEnabled() && flags.autoCommit
		if cfg.Options.Isolation == "" {
			cfg.Options.Isolation = file.Options.Isolation
		}
		if flags.logLevel == "" {
			flags.logLevel = file.Options.LogLevel
		}
		if flags.logFormat == "" {
			flags.logFormat = file.Options.LogFormat
		}
	} else if flags.profile != "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "--profile requires --config")
	}

	if cfg.URL == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "no database URL: pass --url or select a profile")
	}

	props, err := parseProperties(flags.properties)
	if err != nil {
		return nil, err
	}
	for k, v := range props {
		cfg.Properties[k] = v
	}

	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}
	log := logger.New(logCfg)

	reg := driver.NewRegistry()
	reg.SetKnownDrivers(known.RegisterAll)

	return session.New(cfg, reg, nil, log), nil
}

// parseProperties splits repeated key=value flags into a map.
func parseProperties(pairs []string) (map[string]string, error) {
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("invalid --property %q, want key=value", pair))
		}
		props[key] = value
	}
	return props, nil
}
