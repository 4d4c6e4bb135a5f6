package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/menubot/core/config"
	coredatabase "github.com/m3rciful/menubot/core/database"
)

// Config is the full bot configuration: the shared core sections plus the
// database used by the postgres menu source.
type Config struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// UsesDatabase reports whether the configured menu source needs postgres.
func (c *Config) UsesDatabase() bool {
	return c.Menu.Source == coreconfig.MenuSourcePostgres
}

// LoadConfig reads the YAML file at path, overlays the environment and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates core sections, then the database section when it is used.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if !cfg.UsesDatabase() {
		return nil
	}

	db := &cfg.Database
	if strings.TrimSpace(db.Host) == "" {
		return fmt.Errorf("database.host is required when menu.source is 'postgres'")
	}
	if strings.TrimSpace(db.Name) == "" {
		return fmt.Errorf("database.name is required when menu.source is 'postgres'")
	}
	if db.Port == "" {
		db.Port = "5432"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxConnections <= 0 {
		db.MaxConnections = 4
	}
	return nil
}
