package geolocation

import "time"

const DefaultBaseURL = "https://api.ipgeolocation.io"

type Config struct {
	APIKey           string        `env:"GEO_API_KEY"`
	BaseURL          string        `env:"GEO_BASE_URL" envDefault:"https://api.ipgeolocation.io"`
	Timeout          time.Duration `env:"GEO_TIMEOUT" envDefault:"3s"`
	CacheSize        int           `env:"GEO_CACHE_SIZE" envDefault:"1024"`
	CacheTTL         time.Duration `env:"GEO_CACHE_TTL" envDefault:"1h"`
	BreakerThreshold int           `env:"GEO_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"GEO_BREAKER_COOLDOWN" envDefault:"30s"`
}
