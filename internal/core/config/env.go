package config

import (
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"rf2boot/internal/core/errors"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// RF2BOOT_IMPORT_WORKERS or RF2BOOT_LOAD_MODULES.
const EnvPrefix = "RF2BOOT_"

// LoadDotEnv loads the given .env files that exist into the process
// environment. It returns the number of files loaded.
func LoadDotEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, errors.Wrap(err, errors.CodeConfiguration, "load .env files")
	}
	return len(existing), nil
}

// ApplyEnvOverrides overwrites cfg fields whose RF2BOOT_* variable is set
// and not empty. Fields without a variable keep their value, so a toggle set
// in the config file survives unless the environment names it.
func ApplyEnvOverrides(cfg *Config) error {
	var fromEnv Config
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(err, errors.CodeConfiguration, "parse environment overrides")
	}
	overlay(reflect.ValueOf(cfg).Elem(), reflect.ValueOf(&fromEnv).Elem(), EnvPrefix)
	return nil
}

func overlay(dst, src reflect.Value, prefix string) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if sub, ok := field.Tag.Lookup("envPrefix"); ok && field.Type.Kind() == reflect.Struct {
			overlay(dst.Field(i), src.Field(i), prefix+sub)
			continue
		}
		key := field.Tag.Get("env")
		if key == "" {
			continue
		}
		if v, ok := os.LookupEnv(prefix + key); ok && v != "" {
			dst.Field(i).Set(src.Field(i))
		}
	}
}
