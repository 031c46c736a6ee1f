package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"os"
)

type Config struct {
	HTTPPort        string
	JWTSecret       string
	TokenTTL        time.Duration
	StorageDriver   string
	DBConfig        DBConfig
	CoinGeckoURL    string
	NewsAPIURL      string
	NewsAPIKey      string
	UpstreamTimeout time.Duration
	CacheTTL        time.Duration
	AllowedOrigins  []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (d DBConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.DBName)
}

func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		logrus.WithError(err).Warn("failed to load config file, using env vars")
	}

	cfg := Config{
		HTTPPort:        getEnv("HTTP_PORT", ":8080"),
		JWTSecret:       getEnv("JWT_SECRET", "dev_secret"),
		TokenTTL:        getDurationEnv("TOKEN_TTL", 24*time.Hour),
		StorageDriver:   getEnv("STORAGE_DRIVER", "memory"),
		CoinGeckoURL:    getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		NewsAPIURL:      getEnv("NEWSAPI_URL", "https://newsapi.org/v2"),
		NewsAPIKey:      getEnv("NEWS_API_KEY", ""),
		UpstreamTimeout: getDurationEnv("UPSTREAM_TIMEOUT", 10*time.Second),
		CacheTTL:        getDurationEnv("CACHE_TTL", 5*time.Minute),
		AllowedOrigins:  []string{getEnv("ALLOWED_ORIGIN", "http://localhost:3000")},
		DBConfig: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "coindash"),
		},
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	logrus.WithField("key", key).Warn("invalid duration value, using default")
	return defaultValue
}
