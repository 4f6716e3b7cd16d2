// Package config holds the WordQuizzle server configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Usage is printed when the command line arguments are rejected.
const Usage = "Correct usage:\n\nwqserver <TCP_port> <UDP_port> <match_timer> <invitation_timer> <num_words> <num_threads>"

// Server holds all configuration for the WordQuizzle server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	TCPPort     int    `yaml:"tcp_port"`
	UDPPort     int    `yaml:"udp_port"`

	// Match parameters
	MatchMinutes      int `yaml:"match_minutes"`
	InvitationSeconds int `yaml:"invitation_seconds"`
	NumWords          int `yaml:"num_words"`

	// Worker pool size. Must be at least 4: a match occupies one worker
	// for its whole invitation + play window.
	Workers int `yaml:"workers"`

	// Registration RPC endpoint
	RegistryPort int `yaml:"registry_port"`

	// Files
	Dictionary   string `yaml:"dictionary"`
	DatabasePath string `yaml:"database"`

	// Per-connection read buffer size in bytes.
	ReadBufferSize int `yaml:"read_buffer"`

	// Translation vendor endpoint.
	TranslatorURL string `yaml:"translator_url"`
}

// Default returns a Server config with sensible defaults.
func Default() Server {
	return Server{
		BindAddress:       "0.0.0.0",
		TCPPort:           6000,
		UDPPort:           6001,
		MatchMinutes:      1,
		InvitationSeconds: 10,
		NumWords:          5,
		Workers:           4,
		RegistryPort:      5678,
		Dictionary:        "ItalianDictionary.txt",
		DatabasePath:      "Database.json",
		ReadBufferSize:    512,
		TranslatorURL:     "https://api.mymemory.translated.net/get",
	}
}

// Load loads the server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// FromArgs applies the six positional command line arguments to cfg:
// <TCP_port> <UDP_port> <match_timer> <invitation_timer> <num_words> <num_threads>.
// No arguments at all means run on the file/default config. Any parse or
// validation failure is returned as an error; callers print Usage and
// exit with code 1.
func FromArgs(cfg Server, args []string) (Server, error) {
	if len(args) == 0 {
		return cfg, cfg.Validate()
	}
	if len(args) != 6 || args[0] == "--help" {
		return cfg, fmt.Errorf("expected 6 arguments, got %d", len(args))
	}

	fields := []struct {
		name string
		dst  *int
	}{
		{"TCP_port", &cfg.TCPPort},
		{"UDP_port", &cfg.UDPPort},
		{"match_timer", &cfg.MatchMinutes},
		{"invitation_timer", &cfg.InvitationSeconds},
		{"num_words", &cfg.NumWords},
		{"num_threads", &cfg.Workers},
	}
	for i, f := range fields {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return cfg, fmt.Errorf("parsing %s %q: %w", f.name, args[i], err)
		}
		*f.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the numeric constraints on the configuration.
func (c Server) Validate() error {
	if c.TCPPort <= 1024 || c.UDPPort <= 1024 {
		return fmt.Errorf("ports must be above 1024 (tcp=%d udp=%d)", c.TCPPort, c.UDPPort)
	}
	if c.MatchMinutes <= 0 || c.InvitationSeconds <= 0 {
		return fmt.Errorf("timers must be positive (match=%d invitation=%d)", c.MatchMinutes, c.InvitationSeconds)
	}
	if c.NumWords <= 0 {
		return fmt.Errorf("number of words must be positive (got %d)", c.NumWords)
	}
	if c.Workers < 4 {
		return fmt.Errorf("worker pool size must be at least 4 (got %d)", c.Workers)
	}
	return nil
}
