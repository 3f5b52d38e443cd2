// Package config loads the service's configuration: godotenv for local
// .env files first (as cmd/server/config.go did), then spf13/viper for
// layered env/flag/file resolution, matching the pack's convention in
// Seednode-partybox and grimsleydl-treacherest.
package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Driver   string // "mysql" or "sqlite"
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Config aggregates every sub-config the entrypoint needs to wire
// services, the generalization of the teacher's own Config struct in
// cmd/server/config.go plus platform/backend's AppConfig grouping.
type Config struct {
	ListenAddr         string
	Environment        string
	SessionCookieName  string
	SessionSigningKey  string
	MaxRooms           int
	RoomIdleTTL        time.Duration
	AllowedOrigins     string
	Database           DatabaseConfig
	Redis              RedisConfig
}

// Load calls godotenv.Load() first (ignoring a missing .env, same as the
// teacher), then reads everything through viper.AutomaticEnv() so a
// config.yaml can override defaults without code changes.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file found, continuing with process environment")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SESSION_COOKIE_NAME", "ct_session")
	v.SetDefault("MAX_ROOMS", 1000)
	v.SetDefault("ROOM_IDLE_TTL_SECONDS", 3600)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "convtrainer")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	cfg := &Config{
		ListenAddr:        v.GetString("LISTEN_ADDR"),
		Environment:       v.GetString("ENV"),
		SessionCookieName: v.GetString("SESSION_COOKIE_NAME"),
		SessionSigningKey: v.GetString("SESSION_SIGNING_KEY"),
		MaxRooms:          v.GetInt("MAX_ROOMS"),
		RoomIdleTTL:       time.Duration(v.GetInt("ROOM_IDLE_TTL_SECONDS")) * time.Second,
		AllowedOrigins:    v.GetString("ALLOWED_ORIGINS"),
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			Driver:   v.GetString("DB_DRIVER"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}
	return cfg, nil
}
