package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vango-dev/throwdown/internal/config"
)

// envPrefix is the prefix of environment overrides, e.g.
// THROWDOWN_LOG_LEVEL for log.level.
const envPrefix = "THROWDOWN"

// bindFlags binds config keys to flags and to their environment variables.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range keys {
		must(v.BindPFlag(key, flags.Lookup(name)))
	}
}

// loadSettings reads the config file and applies environment and flag
// overrides on top of it.
func loadSettings(v *viper.Viper) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	overrideString(v, "identity.allocator", &cfg.Identity.Allocator)
	overrideString(v, "identity.prefix", &cfg.Identity.Prefix)
	overrideInt(v, "identity.maxattempts", &cfg.Identity.MaxAttempts)
	overrideInt(v, "runtime.taskbuffer", &cfg.Runtime.TaskBuffer)
	overrideInt(v, "runtime.maxflushrounds", &cfg.Runtime.MaxFlushRounds)
	overrideString(v, "log.level", &cfg.Log.Level)
	overrideString(v, "log.format", &cfg.Log.Format)
	overrideBool(v, "metrics.enabled", &cfg.Metrics.Enabled)
	overrideString(v, "metrics.namespace", &cfg.Metrics.Namespace)
	overrideBool(v, "inspect.enabled", &cfg.Inspect.Enabled)
	overrideString(v, "inspect.addr", &cfg.Inspect.Addr)
	overrideInt(v, "inspect.eventbuffer", &cfg.Inspect.EventBuffer)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// An empty string never overrides; flags default to "" when unset.

func overrideString(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

func overrideInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func overrideBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}
