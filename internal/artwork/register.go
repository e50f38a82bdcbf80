package artwork

import "github.com/tphakala/artfetch/internal/conf"

// RegisterConfiguredProviders registers every known provider that has a
// configuration block in settings. Unknown provider names in the
// configuration are ignored so a config file can carry blocks for providers
// this build does not include.
func RegisterConfiguredProviders(r *Resolver, settings *conf.Settings) {
	if cfg, ok := settings.Artwork.Providers["staticart"]; ok && cfg.Endpoint != "" {
		r.RegisterProvider("staticart", NewStaticArtProvider(cfg.Endpoint, settings.Debug))
	}
}
