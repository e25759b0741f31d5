package cmd

import (
	"fmt"

	"github.com/apigear-io/sioprobe/pkg/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SIOPROBE"

const (
	keyURL       = "url"
	keyPath      = "path"
	keyWait      = "wait"
	keyTransport = "transport"
	keyListen    = "listen"
	keySubscribe = "subscribe"
	keyAllEvents = "allevents"
)

var optionKeys = []string{keyURL, keyPath, keyWait, keyTransport, keyListen, keySubscribe, keyAllEvents}

// loadOptions merges the probe options. A flag set on the command line wins
// over SIOPROBE_* environment variables, which win over the config file.
// Unset keys stay empty and get their defaults from config.Resolve.
func loadOptions(flags *pflag.FlagSet, configFile string) (config.RawOptions, error) {
	var raw config.RawOptions

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, key := range optionKeys {
		if err := v.BindEnv(key); err != nil {
			return raw, err
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return raw, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	settings := v.AllSettings()
	for _, key := range optionKeys {
		f := flags.Lookup(key)
		if f == nil || !f.Changed {
			continue
		}
		value, err := flagValue(flags, key)
		if err != nil {
			return raw, err
		}
		settings[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return raw, err
	}
	if err := decoder.Decode(settings); err != nil {
		return raw, fmt.Errorf("decode options: %w", err)
	}
	return raw, nil
}

// flagValue reads list flags as arrays so that values containing commas,
// like JSON parameters, stay whole. The wait value stays a string until
// config.Resolve reads it.
func flagValue(flags *pflag.FlagSet, key string) (any, error) {
	switch key {
	case keyTransport, keyListen, keySubscribe:
		return flags.GetStringArray(key)
	case keyAllEvents:
		return flags.GetBool(key)
	default:
		return flags.GetString(key)
	}
}
