package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		errs = append(errs, errors.New("ListenAddress is required"))
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		errs = append(errs, errors.New("DataDir is required"))
	}
	if cfg.HTTP.ReadHeaderTimeout < 0 || cfg.HTTP.ReadTimeout < 0 || cfg.HTTP.WriteTimeout < 0 || cfg.HTTP.IdleTimeout < 0 {
		errs = append(errs, errors.New("http: timeouts must not be negative"))
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http: MaxBodyBytes must be positive"))
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate_limit: RequestsPerSecond must not be negative"))
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit: Burst must be positive when limiting is enabled"))
	}
	if level := strings.ToLower(strings.TrimSpace(cfg.Log.Level)); level != "" {
		if _, ok := validLevels[level]; !ok {
			errs = append(errs, fmt.Errorf("log: unknown Level %q", cfg.Log.Level))
		}
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log: rotation limits must not be negative"))
	}
	if (cfg.Telemetry.Traces || cfg.Telemetry.Metrics) && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		errs = append(errs, errors.New("telemetry: Endpoint is required when export is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
