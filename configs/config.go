package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type ERP struct {
	BaseURL  string
	Database string
	Login    string
	Password string
}

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

type Config struct {
	ERP               ERP
	R2                R2
	InstagramGraphURL string
	PostgresURI       string
	RedisURI          string
	APIKey            string
	PromoLink         string
	PublishTimeout    time.Duration
	Accounts          string
}

func LoadConfig() *Config {
	return &Config{
		ERP: ERP{
			BaseURL:  getEnv("ERP_BASE_URL", "http://localhost:8069"),
			Database: getEnv("ERP_DATABASE", ""),
			Login:    getEnv("ERP_LOGIN", ""),
			Password: getEnv("ERP_PASSWORD", ""),
		},
		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		InstagramGraphURL: getEnv("INSTAGRAM_GRAPH_URL", "https://graph.facebook.com/v17.0"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", "127.0.0.1:6379"),
		APIKey:            getEnv("API_KEY", ""),
		PromoLink:         getEnv("PROMO_LINK", ""),
		PublishTimeout:    getDurationEnv("PUBLISH_TIMEOUT", 5*time.Minute),
		Accounts:          getEnv("SOCIAL_ACCOUNTS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s value '%s', using default %s", key, value, defaultValue)
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
