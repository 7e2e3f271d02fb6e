package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Load parses environment variables into the given config struct based on
// its `env` tags. The first call loads a .env file when one exists; a
// missing file is not an error. Each config type is parsed once per
// process and served from cache afterwards, so every package sees the
// same values no matter how often it loads.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	name := typeName[T]()

	cacheMu.RLock()
	cached, ok := cache[name]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	// A concurrent loader may have won the race; its copy is as good as
	// ours, keep the first one for consistency.
	if cached, ok := cache[name]; ok {
		*v = cached.(T)
	} else {
		cache[name] = *v
	}
	cacheMu.Unlock()
	return nil
}

// MustLoad works like Load but panics on failure. Use it for configs the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
