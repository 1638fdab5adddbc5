package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Driver names accepted by Config.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQL    = "sql"
)

// Config selects and configures a storage driver. It is designed to be
// loaded from YAML:
//
//	driver: file
//	path: ./data
//	watch: true
//
// or, for the SQL driver:
//
//	driver: sql
//	sql:
//	  driver: sqlite
//	  dsn: file:burrow.db
type Config struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Watch  bool   `yaml:"watch"`

	SQL struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"sql"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("burrow: storage: read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("burrow: storage: parse config: %w", err)
	}
	return &c, nil
}

// Open builds the store the config describes.
func (c *Config) Open() (Store, error) {
	switch c.Driver {
	case DriverMemory, "":
		return NewMemStore(), nil
	case DriverFile:
		if c.Path == "" {
			return nil, fmt.Errorf("burrow: storage: file driver requires a path")
		}
		opts := []FileOption{WithCache(NewMemoryCache())}
		if c.Watch {
			opts = append(opts, WithWatch())
		}
		return OpenFileStore(c.Path, opts...)
	case DriverSQL:
		if c.SQL.Driver == "" || c.SQL.DSN == "" {
			return nil, fmt.Errorf("burrow: storage: sql driver requires driver and dsn")
		}
		return OpenSQLStore(c.SQL.Driver, c.SQL.DSN)
	default:
		return nil, fmt.Errorf("burrow: storage: unknown driver %q", c.Driver)
	}
}
