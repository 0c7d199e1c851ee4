// Package config loads relay configuration as a flat shallow merge:
// defaults, then the optional JSON file, then environment variables,
// then whatever flags were set on the command line.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Config is the relay's flat settings surface.
type Config struct {
	EngineHost         string `json:"engine_host"`
	EnginePort         int    `json:"engine_port"`
	Transport          string `json:"transport"` // tcp, udp, multicast
	MulticastGroup     string `json:"multicast_group"` // host:port
	MulticastInterface string `json:"multicast_interface"`
	WSHost             string `json:"ws_host"`
	WSPort             int    `json:"ws_port"`
	Filter             string `json:"filter"` // comma-separated event kinds; empty forwards all
	Verbose            bool   `json:"verbose"`
}

// Default is the base layer of the merge.
func Default() Config {
	return Config{
		EngineHost: "127.0.0.1",
		EnginePort: 9000,
		Transport:  "tcp",
		WSHost:     "0.0.0.0",
		WSPort:     8080,
	}
}

// EngineAddr is the engine endpoint as host:port.
func (c Config) EngineAddr() string {
	return net.JoinHostPort(c.EngineHost, strconv.Itoa(c.EnginePort))
}

// WSAddr is the WebSocket bind address as host:port.
func (c Config) WSAddr() string {
	return net.JoinHostPort(c.WSHost, strconv.Itoa(c.WSPort))
}

// Validate reports the first invalid setting in a human-readable line.
func (c Config) Validate() error {
	switch c.Transport {
	case "tcp", "udp":
	case "multicast":
		if c.MulticastGroup == "" {
			return fmt.Errorf("config: transport multicast requires a multicast group")
		}
	default:
		return fmt.Errorf("config: unknown transport %q (want tcp, udp, or multicast)", c.Transport)
	}
	if c.EnginePort < 1 || c.EnginePort > 65535 {
		return fmt.Errorf("config: engine port %d out of range", c.EnginePort)
	}
	if c.WSPort < 1 || c.WSPort > 65535 {
		return fmt.Errorf("config: websocket port %d out of range", c.WSPort)
	}
	return nil
}

// Flags binds the settings onto a FlagSet. Resolve reads the merged
// result after Parse.
type Flags struct {
	fs *flag.FlagSet

	configPath *string
	engineHost *string
	enginePort *int
	transport  *string
	mcGroup    *string
	mcIface    *string
	wsHost     *string
	wsPort     *int
	filter     *string
	verbose    *bool
}

// Register declares every setting on fs with the built-in defaults.
func Register(fs *flag.FlagSet) *Flags {
	def := Default()
	return &Flags{
		fs:         fs,
		configPath: fs.String("config", "", "path to JSON config file"),
		engineHost: fs.String("engine-host", def.EngineHost, "matching engine host"),
		enginePort: fs.Int("engine-port", def.EnginePort, "matching engine port"),
		transport:  fs.String("transport", def.Transport, "engine transport: tcp, udp, multicast"),
		mcGroup:    fs.String("multicast-group", def.MulticastGroup, "multicast group as host:port"),
		mcIface:    fs.String("multicast-interface", def.MulticastInterface, "multicast interface name"),
		wsHost:     fs.String("ws-host", def.WSHost, "websocket bind host"),
		wsPort:     fs.Int("ws-port", def.WSPort, "websocket bind port"),
		filter:     fs.String("filter", def.Filter, "comma-separated event kinds to relay (empty: all)"),
		verbose:    fs.Bool("v", def.Verbose, "debug logging"),
	}
}

// Resolve merges defaults < file < env < flags and validates. Call
// after the FlagSet has parsed.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()

	if *f.configPath != "" {
		if err := applyFile(&cfg, *f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "engine-host":
			cfg.EngineHost = *f.engineHost
		case "engine-port":
			cfg.EnginePort = *f.enginePort
		case "transport":
			cfg.Transport = *f.transport
		case "multicast-group":
			cfg.MulticastGroup = *f.mcGroup
		case "multicast-interface":
			cfg.MulticastInterface = *f.mcIface
		case "ws-host":
			cfg.WSHost = *f.wsHost
		case "ws-port":
			cfg.WSPort = *f.wsPort
		case "filter":
			cfg.Filter = *f.filter
		case "v":
			cfg.Verbose = *f.verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with pointer fields so absent keys leave
// the lower layers alone.
type fileConfig struct {
	EngineHost         *string `json:"engine_host"`
	EnginePort         *int    `json:"engine_port"`
	Transport          *string `json:"transport"`
	MulticastGroup     *string `json:"multicast_group"`
	MulticastInterface *string `json:"multicast_interface"`
	WSHost             *string `json:"ws_host"`
	WSPort             *int    `json:"ws_port"`
	Filter             *string `json:"filter"`
	Verbose            *bool   `json:"verbose"`
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.EngineHost != nil {
		cfg.EngineHost = *fc.EngineHost
	}
	if fc.EnginePort != nil {
		cfg.EnginePort = *fc.EnginePort
	}
	if fc.Transport != nil {
		cfg.Transport = *fc.Transport
	}
	if fc.MulticastGroup != nil {
		cfg.MulticastGroup = *fc.MulticastGroup
	}
	if fc.MulticastInterface != nil {
		cfg.MulticastInterface = *fc.MulticastInterface
	}
	if fc.WSHost != nil {
		cfg.WSHost = *fc.WSHost
	}
	if fc.WSPort != nil {
		cfg.WSPort = *fc.WSPort
	}
	if fc.Filter != nil {
		cfg.Filter = *fc.Filter
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("ENGINE_HOST"); ok {
		cfg.EngineHost = v
	}
	if v, ok := os.LookupEnv("ENGINE_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: ENGINE_PORT: %q is not a number", v)
		}
		cfg.EnginePort = n
	}
	if v, ok := os.LookupEnv("TRANSPORT"); ok {
		cfg.Transport = v
	}
	if v, ok := os.LookupEnv("MULTICAST_GROUP"); ok {
		cfg.MulticastGroup = v
	}
	if v, ok := os.LookupEnv("MULTICAST_INTERFACE"); ok {
		cfg.MulticastInterface = v
	}
	if v, ok := os.LookupEnv("WS_HOST"); ok {
		cfg.WSHost = v
	}
	if v, ok := os.LookupEnv("WS_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: WS_PORT: %q is not a number", v)
		}
		cfg.WSPort = n
	}
	if v, ok := os.LookupEnv("FILTER"); ok {
		cfg.Filter = v
	}
	if v, ok := os.LookupEnv("VERBOSE"); ok {
		cfg.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}
