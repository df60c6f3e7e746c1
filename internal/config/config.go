package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/emostim/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	Port        string `mapstructure:"PORT"`

	VideoDir          string `mapstructure:"VIDEO_DIR"`
	HealingVideo      string `mapstructure:"HEALING_VIDEO"`
	MaxStreams        int    `mapstructure:"MAX_CONCURRENT_STREAMS"`
	ChunkSize         int64  `mapstructure:"CHUNK_SIZE"`
	RetryAfterSeconds int    `mapstructure:"RETRY_AFTER_SECONDS"`

	// Database
	DBType         string `mapstructure:"DB_TYPE"`
	DBPath         string `mapstructure:"DB_PATH"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         int    `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"ENVIRONMENT":            "development",
	"PORT":                   "8080",
	"VIDEO_DIR":              "./videos",
	"HEALING_VIDEO":          "healing.mp4",
	"MAX_CONCURRENT_STREAMS": 10,
	"CHUNK_SIZE":             1 << 20,
	"RETRY_AFTER_SECONDS":    5,
	"DB_TYPE":                "sqlite",
	"DB_PATH":                "./emostim.db",
	"DB_HOST":                "localhost",
	"DB_PORT":                0,
	"DB_USER":                "emostim",
	"DB_PASSWORD":            "emostim_dev",
	"DB_NAME":                "emostim",
	"DB_MAX_OPEN_CONNS":      25,
	"DB_MAX_IDLE_CONNS":      5,
	"LOG_LEVEL":              "info",
	"LOG_FILE":               "",
	"SHUTDOWN_TIMEOUT":       "30s",
}

// Load reads an optional .env file from path and overlays the process
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.DBPort == 0 {
		cfg.DBPort = defaultPort(cfg.DBType)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBType {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_TYPE: %q", c.DBType)
	}
	if c.MaxStreams <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_STREAMS must be positive, got %d", c.MaxStreams)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.RetryAfterSeconds < 0 {
		return fmt.Errorf("RETRY_AFTER_SECONDS must not be negative, got %d", c.RetryAfterSeconds)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.VideoDir == "" {
		return errors.New("VIDEO_DIR is required")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultPort(dbType string) int {
	switch dbType {
	case "postgres":
		return 5432
	case "mysql":
		return 3306
	}
	return 0
}

// Database returns the connection settings for database.NewDB.
func (c Config) Database(log *logrus.Entry) database.Config {
	return database.Config{
		Type:         c.DBType,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		Name:         c.DBName,
		SQLitePath:   c.DBPath,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
		Logger:       log,
	}
}
