// Package config loads and validates server configuration from YAML
// files and TW_-prefixed environment variables, with hot reload support.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Rooms  RoomsConfig  `mapstructure:"rooms"`
	Bots   BotsConfig   `mapstructure:"bots"`
}

// ServerConfig holds the websocket gateway settings
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// GameConfig holds game mechanics configuration
type GameConfig struct {
	TickIntervalMs    int `mapstructure:"tick_interval_ms"`
	StaleTurnLimit    int `mapstructure:"stale_turn_limit"`
	CrownGrowInterval int `mapstructure:"crown_grow_interval"`
	PlainGrowInterval int `mapstructure:"plain_grow_interval"`
	CityArmyMin       int `mapstructure:"city_army_min"`
	CityArmyMax       int `mapstructure:"city_army_max"`
	KingAttempts      int `mapstructure:"king_attempts"`
	ObstacleTries     int `mapstructure:"obstacle_tries"`
}

// RoomsConfig holds room lifecycle settings
type RoomsConfig struct {
	MaxRooms          int     `mapstructure:"max_rooms"`
	DefaultMaxPlayers int     `mapstructure:"default_max_players"`
	DefaultGameSpeed  float64 `mapstructure:"default_game_speed"`
}

// BotsConfig holds bot manager settings
type BotsConfig struct {
	MaxBots int   `mapstructure:"max_bots"`
	Seed    int64 `mapstructure:"seed"` // 0 means seed from the clock
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")

	v.SetDefault("game.tick_interval_ms", 500)
	v.SetDefault("game.stale_turn_limit", 160)
	v.SetDefault("game.crown_grow_interval", 2)
	v.SetDefault("game.plain_grow_interval", 50)
	v.SetDefault("game.city_army_min", 35)
	v.SetDefault("game.city_army_max", 55)
	v.SetDefault("game.king_attempts", 100)
	v.SetDefault("game.obstacle_tries", 3)

	v.SetDefault("rooms.max_rooms", 100)
	v.SetDefault("rooms.default_max_players", 8)
	v.SetDefault("rooms.default_game_speed", 1.0)

	v.SetDefault("bots.max_bots", 10)
	v.SetDefault("bots.seed", 0)
}

// Init initializes the configuration
func Init(configPath string) error {
	v = viper.New()

	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tilewars")
	}

	v.SetEnvPrefix("TW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if configPath == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
		// Config file not found; use defaults
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	v.Set(key, value)
	v.Unmarshal(cfg)
}

// WatchConfig enables hot-reloading of the config file
func WatchConfig(onChange func()) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		v.Unmarshal(cfg)
		if onChange != nil {
			onChange()
		}
	})
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Game.TickIntervalMs <= 0 {
		return fmt.Errorf("game.tick_interval_ms must be positive")
	}
	if c.Game.StaleTurnLimit < 0 {
		return fmt.Errorf("game.stale_turn_limit must be non-negative")
	}
	if c.Game.CrownGrowInterval <= 0 {
		return fmt.Errorf("game.crown_grow_interval must be positive")
	}
	if c.Game.PlainGrowInterval <= 0 {
		return fmt.Errorf("game.plain_grow_interval must be positive")
	}
	if c.Game.CityArmyMin < 0 {
		return fmt.Errorf("game.city_army_min must be non-negative")
	}
	if c.Game.CityArmyMax <= c.Game.CityArmyMin {
		return fmt.Errorf("game.city_army_max must exceed game.city_army_min")
	}
	if c.Game.KingAttempts <= 0 {
		return fmt.Errorf("game.king_attempts must be positive")
	}
	if c.Game.ObstacleTries <= 0 {
		return fmt.Errorf("game.obstacle_tries must be positive")
	}

	if c.Rooms.MaxRooms <= 0 {
		return fmt.Errorf("rooms.max_rooms must be positive")
	}
	if c.Rooms.DefaultMaxPlayers < 1 || c.Rooms.DefaultMaxPlayers > 12 {
		return fmt.Errorf("rooms.default_max_players must be between 1 and 12")
	}
	if c.Rooms.DefaultGameSpeed <= 0 {
		return fmt.Errorf("rooms.default_game_speed must be positive")
	}

	if c.Bots.MaxBots < 0 {
		return fmt.Errorf("bots.max_bots must be non-negative")
	}

	return nil
}
