// Package config loads typed configuration structs from the environment.
//
// Values come from process environment variables, optionally seeded from one
// or more .env files through github.com/joho/godotenv, and are parsed into
// structs with github.com/caarlos0/env/v11 field tags:
//
//	type GeoConfig struct {
//		APIKey  string        `env:"GEO_API_KEY"`
//		Timeout time.Duration `env:"GEO_TIMEOUT" envDefault:"3s"`
//	}
//
//	var cfg GeoConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Each struct type is parsed once per process and served from a cache on
// subsequent calls. Tests that change the environment call Reset first.
package config
