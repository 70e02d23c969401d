package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Viper is a Source backed by github.com/spf13/viper.
// Environment variables override file values: APPLICATION_NAME for
// application.name, with the optional prefix prepended.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from the given file and reloads it on change.
// The config file type is inferred from the filename extension.
func NewViper(pathFile string) (*Viper, error) {
	v := newViper("")

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "error", err)
			return
		}
		slog.Info("config reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory.
// configType is a format supported by viper ("yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper("")
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

// NewEnv reads configuration from environment variables only
func NewEnv(prefix string) *Viper {
	return &Viper{v: newViper(prefix)}
}

func newViper(envPrefix string) *viper.Viper {
	v := viper.New()
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// GetString returns the value for key as string
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// Set overrides the value for key
func (vc *Viper) Set(key string, value any) {
	vc.v.Set(key, value)
}
