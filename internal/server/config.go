package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cardroom/internal/room"
)

// Config is the complete server configuration. Both blocks are optional
// in the file; absent values fall back to the defaults.
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	ListenAddr string `hcl:"listen_addr,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	HandLogDir string `hcl:"hand_log_dir,optional"`
}

// GameSettings fixes the parameters every room is created with
type GameSettings struct {
	StartingChips    int `hcl:"starting_chips,optional"`
	SmallBlind       int `hcl:"small_blind,optional"`
	BigBlind         int `hcl:"big_blind,optional"`
	MaxSeats         int `hcl:"max_seats,optional"`
	TurnSeconds      int `hcl:"turn_seconds,optional"`
	InterHandSeconds int `hcl:"inter_hand_seconds,optional"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerSettings{
			ListenAddr: ":8080",
			LogLevel:   "info",
		},
		Game: &GameSettings{
			StartingChips:    1000,
			SmallBlind:       10,
			BigBlind:         20,
			MaxSeats:         6,
			TurnSeconds:      30,
			InterHandSeconds: 6,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file is not
// an error: the defaults serve.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server == nil {
		config.Server = &ServerSettings{}
	}
	if config.Game == nil {
		config.Game = &GameSettings{}
	}
	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = defaults.Server.ListenAddr
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.StartingChips == 0 {
		config.Game.StartingChips = defaults.Game.StartingChips
	}
	if config.Game.SmallBlind == 0 {
		config.Game.SmallBlind = defaults.Game.SmallBlind
	}
	if config.Game.BigBlind == 0 {
		config.Game.BigBlind = defaults.Game.BigBlind
	}
	if config.Game.MaxSeats == 0 {
		config.Game.MaxSeats = defaults.Game.MaxSeats
	}
	if config.Game.TurnSeconds == 0 {
		config.Game.TurnSeconds = defaults.Game.TurnSeconds
	}
	if config.Game.InterHandSeconds == 0 {
		config.Game.InterHandSeconds = defaults.Game.InterHandSeconds
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server == nil || c.Game == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.Game.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Game.StartingChips < c.Game.BigBlind {
		return fmt.Errorf("starting chips must cover at least the big blind")
	}
	if c.Game.MaxSeats < 2 || c.Game.MaxSeats > 6 {
		return fmt.Errorf("max seats must be between 2 and 6")
	}
	if c.Game.TurnSeconds <= 0 {
		return fmt.Errorf("turn_seconds must be positive")
	}
	if c.Game.InterHandSeconds <= 0 {
		return fmt.Errorf("inter_hand_seconds must be positive")
	}
	return nil
}

// RoomConfig maps the game settings onto a room configuration
func (c *Config) RoomConfig() room.Config {
	return room.Config{
		StartingChips:  c.Game.StartingChips,
		SmallBlind:     c.Game.SmallBlind,
		BigBlind:       c.Game.BigBlind,
		MaxSeats:       c.Game.MaxSeats,
		TurnTimeout:    time.Duration(c.Game.TurnSeconds) * time.Second,
		InterHandDelay: time.Duration(c.Game.InterHandSeconds) * time.Second,
	}
}
