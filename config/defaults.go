package config

import "github.com/spf13/viper"

const (
	DefaultHTTPPort      = 8080
	DefaultOSCPort       = 53100
	DefaultOSCReplyPort  = 53101
	DefaultWatchSchedule = "@every 5s"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.timestamps", true)

	// Storage
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "~/.runsheet/runsheet.db")

	// HTTP
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", DefaultHTTPPort)

	// OSC control surface
	v.SetDefault("osc.enabled", true)
	v.SetDefault("osc.host", "127.0.0.1")
	v.SetDefault("osc.port", DefaultOSCPort)
	v.SetDefault("osc.reply_port", DefaultOSCReplyPort)
	v.SetDefault("osc.timeout", "5s")
	v.SetDefault("osc.max_retries", 2)

	// Due-state watcher
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.schedule", DefaultWatchSchedule)

	// Empty means the host's local zone
	v.SetDefault("clock.timezone", "")

	v.SetDefault("runsheet.exclusive_live", false)
	v.SetDefault("templates.path", "")
}
