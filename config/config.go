package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "POSTFORUM"

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type ForumConfig struct {
	PostsPerPage     int           `mapstructure:"posts_per_page" validate:"min=1"`
	TagsPerPage      int           `mapstructure:"tags_per_page" validate:"min=1"`
	PostViewInterval time.Duration `mapstructure:"post_view_interval"`
	RecentVotes      int           `mapstructure:"recent_votes" validate:"min=0"`
	SessionTTL       time.Duration `mapstructure:"session_ttl" validate:"required"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Forum    ForumConfig    `mapstructure:"forum"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":4422")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "./forum.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("forum.posts_per_page", 25)
	v.SetDefault("forum.tags_per_page", 100)
	v.SetDefault("forum.post_view_interval", 30*time.Minute)
	v.SetDefault("forum.recent_votes", 10)
	v.SetDefault("forum.session_ttl", time.Hour)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", time.Minute)
}

// LoadEnv reads a .env file into the process environment when one exists.
func LoadEnv(logger *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Debug(".env file not found, using environment variables", zap.Error(err))
	}
}

// Load merges defaults, every existing YAML file among paths and POSTFORUM_* variables.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
