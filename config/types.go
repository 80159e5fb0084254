package config

// HTTP holds server timeouts in seconds.
type HTTP struct {
	ReadHeaderTimeout int   `toml:"ReadHeaderTimeout"`
	ReadTimeout       int   `toml:"ReadTimeout"`
	WriteTimeout      int   `toml:"WriteTimeout"`
	IdleTimeout       int   `toml:"IdleTimeout"`
	ShutdownTimeout   int   `toml:"ShutdownTimeout"`
	MaxBodyBytes      int64 `toml:"MaxBodyBytes"`
}

// RateLimit bounds requests per client. RequestsPerSecond of zero disables
// limiting.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Log configures structured logging and optional rotated file output.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}
