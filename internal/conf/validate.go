package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks the loaded configuration for values the resolution
// engine cannot operate with. It returns a joined error listing every problem.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if settings.Artwork.Cache.TTL <= 0 {
		errs = append(errs, errors.New("artwork.cache.ttl must be positive"))
	}
	if settings.Artwork.Cache.MaxSize <= 0 {
		errs = append(errs, errors.New("artwork.cache.maxsize must be positive"))
	}
	if settings.Artwork.Cache.Persist && settings.Artwork.Cache.FilePath == "" {
		errs = append(errs, errors.New("artwork.cache.filepath is required when persistence is enabled"))
	}
	if settings.Artwork.Cache.Debounce < 0 {
		errs = append(errs, errors.New("artwork.cache.debounce must not be negative"))
	}

	if settings.Artwork.Refresh.Enabled {
		if settings.Artwork.Refresh.Interval <= 0 {
			errs = append(errs, errors.New("artwork.refresh.interval must be positive"))
		}
		if settings.Artwork.Refresh.RatePerSecond <= 0 {
			errs = append(errs, errors.New("artwork.refresh.ratepersecond must be positive"))
		}
	}

	for name, provider := range settings.Artwork.Providers {
		if provider.Priority < 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.priority must not be negative", name))
		}
		if provider.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.timeout must be positive", name))
		}
		if provider.RateLimit.MaxRequests <= 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.ratelimit.maxrequests must be positive", name))
		}
		if provider.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.ratelimit.window must be positive", name))
		}
		if provider.Breaker.Threshold <= 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.breaker.threshold must be positive", name))
		}
		if provider.Breaker.Cooldown <= 0 {
			errs = append(errs, fmt.Errorf("artwork.providers.%s.breaker.cooldown must be positive", name))
		}
	}

	return errors.Join(errs...)
}
