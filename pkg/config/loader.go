package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu      sync.Mutex
	loaded  = map[reflect.Type]any{}
	dotenvs sync.Once
)

// LoadEnvFiles seeds the process environment from the given .env files.
// Variables already present in the environment are not overridden.
func LoadEnvFiles(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses the environment into v. The first successful parse of a type is
// cached, and later calls for the same type copy the cached value.
// A missing default .env file is not an error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvs.Do(func() { _ = godotenv.Load() })

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	loaded[key] = parsed
	*v = parsed

	return nil
}

// Reset drops every cached configuration.
func Reset() {
	mu.Lock()
	clear(loaded)
	mu.Unlock()
}
