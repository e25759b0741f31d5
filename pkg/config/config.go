package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	// DefaultURL is the public stream endpoint used when no URL is given.
	DefaultURL = "https://atlas-stream.ripe.net/stream/socket.io/"
	// DefaultPath is the Socket.IO handshake path.
	DefaultPath = "/socket.io/"
	// TransportWebSocket is the transport used when none is given.
	TransportWebSocket = "websocket"
)

const maxWaitMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// RawOptions is the unnormalized input collected from flags, the
// environment and the config file. List-valued fields hold either a single
// string or a list.
type RawOptions struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
	// Wait is in seconds, as a number or a numeric string.
	Wait      any  `mapstructure:"wait"`
	Transport any  `mapstructure:"transport"`
	Listen    any  `mapstructure:"listen"`
	Subscribe any  `mapstructure:"subscribe"`
	AllEvents bool `mapstructure:"allevents"`
}

// Config is the resolved, read-only configuration of one probe run.
type Config struct {
	HostURL     string
	Path        string
	Transports  []string
	ListenTo    []string
	SubscribeTo []string
	UseWildcard bool
	// Wait is the delay after which the connection is closed. Zero keeps
	// the connection open until it ends or the process is interrupted.
	Wait time.Duration
}

// Resolve normalizes raw input into a Config. It never fails: malformed
// values are normalized, and a bad URL surfaces later as a connection error.
func Resolve(raw RawOptions) Config {
	cfg := Config{
		HostURL:     strings.TrimSpace(raw.URL),
		Path:        strings.TrimSpace(raw.Path),
		Transports:  Lift(raw.Transport),
		ListenTo:    unique(Lift(raw.Listen)),
		SubscribeTo: Lift(raw.Subscribe),
		UseWildcard: raw.AllEvents,
		Wait:        waitDuration(raw.Wait),
	}
	if cfg.HostURL == "" {
		cfg.HostURL = DefaultURL
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if len(cfg.Transports) == 0 {
		cfg.Transports = []string{TransportWebSocket}
	}
	return cfg
}

// Lift turns a scalar-or-list value into a list of strings. Empty strings
// are dropped.
func Lift(v any) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	switch val := v.(type) {
	case nil:
	case string:
		add(val)
	case []string:
		for _, s := range val {
			add(s)
		}
	case []any:
		for _, item := range val {
			if item != nil {
				add(fmt.Sprint(item))
			}
		}
	default:
		add(fmt.Sprint(val))
	}
	return out
}

// waitDuration converts seconds to a duration truncated to whole
// milliseconds. Anything that is not a positive number of seconds, or is
// too large for a duration, means no wait.
func waitDuration(v any) time.Duration {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	seconds, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(seconds) || seconds <= 0 || seconds*1000 >= maxWaitMillis {
		return 0
	}
	return time.Duration(int64(seconds*1000)) * time.Millisecond
}

func unique(names []string) []string {
	if len(names) == 0 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
