// Package geolocation resolves IP addresses to a display location of the form
// "<city>, <country>" using the ipgeolocation.io lookup API.
//
// Lookups are advisory. Every failure (network, timeout, non-2xx status,
// malformed body, open circuit) is returned as an error wrapping ErrGeoLookup
// so callers can degrade to a placeholder without inspecting causes:
//
//	client := geolocation.NewClient(cfg)
//	loc := geolocation.Cached(client, cfg.CacheSize, cfg.CacheTTL)
//
//	where, err := loc.Locate(ctx, "8.8.8.8")
//	if err != nil {
//		where = "Unknown"
//	}
package geolocation
