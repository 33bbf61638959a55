package materialpool

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ellavondegurechaff/materialpool/materialpool/database"
	"github.com/pelletier/go-toml/v2"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	DB      database.DBConfig `toml:"db"`
	Storage StorageConfig     `toml:"storage"`
	Web     WebConfig         `toml:"web"`
	Spaces  SpacesConfig      `toml:"spaces"`
	Import  ImportConfig      `toml:"import"`
	Legacy  LegacyConfig      `toml:"legacy"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
}

type WebConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	SessionKey   string `toml:"session_key"`
	Environment  string `toml:"environment"`
	AllowOrigins string `toml:"allow_origins"`
}

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	Root     string `toml:"root"`
}

// Enabled reports whether uploaded files should be archived to object storage.
func (s SpacesConfig) Enabled() bool {
	return s.Bucket != "" && s.Key != "" && s.Secret != ""
}

type ImportConfig struct {
	MaxParallel int   `toml:"max_parallel"`
	MaxFileSize int64 `toml:"max_file_size"`
	Archive     bool  `toml:"archive"`
}

type LegacyConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
		DB: database.DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "materialpool",
			PoolSize: 10,
		},
		Storage: StorageConfig{Driver: StorageDriverPostgres},
		Web: WebConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Environment:  "development",
			AllowOrigins: "http://localhost:3000",
		},
		Import: ImportConfig{
			MaxParallel: 2,
			MaxFileSize: 10 << 20,
		},
		Legacy: LegacyConfig{
			Database:   "materialpool",
			Collection: "materials",
		},
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Import.MaxParallel <= 0 {
		return fmt.Errorf("import.max_parallel must be positive")
	}
	return nil
}
