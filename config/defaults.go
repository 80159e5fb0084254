package config

import "time"

// Default returns the development configuration written by Load when no file
// exists.
func Default() *Config {
	return &Config{
		ListenAddress: "127.0.0.1:8080",
		DataDir:       "./market-data",
		GenesisFile:   "",
		IndexDSN:      "index.db",
		Environment:   "dev",
		HTTP: HTTP{
			ReadHeaderTimeout: 5,
			ReadTimeout:       15,
			WriteTimeout:      15,
			IdleTimeout:       60,
			ShutdownTimeout:   10,
			MaxBodyBytes:      1 << 20,
		},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Log:       Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Telemetry: Telemetry{Endpoint: "localhost:4318", Insecure: true},
	}
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

// ReadHeaderTimeoutDuration returns the configured header timeout.
func (h HTTP) ReadHeaderTimeoutDuration() time.Duration { return seconds(h.ReadHeaderTimeout) }

// ReadTimeoutDuration returns the configured read timeout.
func (h HTTP) ReadTimeoutDuration() time.Duration { return seconds(h.ReadTimeout) }

// WriteTimeoutDuration returns the configured write timeout.
func (h HTTP) WriteTimeoutDuration() time.Duration { return seconds(h.WriteTimeout) }

// IdleTimeoutDuration returns the configured keep-alive timeout.
func (h HTTP) IdleTimeoutDuration() time.Duration { return seconds(h.IdleTimeout) }

// ShutdownTimeoutDuration returns how long graceful shutdown may take.
func (h HTTP) ShutdownTimeoutDuration() time.Duration { return seconds(h.ShutdownTimeout) }
