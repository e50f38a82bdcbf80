package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for the viper configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "artfetch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "artfetch.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("artwork.cache.ttl", 24*time.Hour)
	viper.SetDefault("artwork.cache.maxsize", 1000)
	viper.SetDefault("artwork.cache.persist", true)
	viper.SetDefault("artwork.cache.filepath", "artwork-cache.json")
	viper.SetDefault("artwork.cache.debounce", time.Second)

	viper.SetDefault("artwork.refresh.enabled", false)
	viper.SetDefault("artwork.refresh.interval", 15*time.Minute)
	viper.SetDefault("artwork.refresh.ratepersecond", 2.0)

	viper.SetDefault("artwork.providers.staticart.enabled", true)
	viper.SetDefault("artwork.providers.staticart.priority", 1)
	viper.SetDefault("artwork.providers.staticart.timeout", 10*time.Second)
	viper.SetDefault("artwork.providers.staticart.endpoint", "https://static.artfetch.dev")
	viper.SetDefault("artwork.providers.staticart.ratelimit.maxrequests", 40)
	viper.SetDefault("artwork.providers.staticart.ratelimit.window", 10*time.Second)
	viper.SetDefault("artwork.providers.staticart.breaker.threshold", 5)
	viper.SetDefault("artwork.providers.staticart.breaker.cooldown", 5*time.Minute)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
