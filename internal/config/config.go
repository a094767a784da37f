package config

import (
	"os"
)

type AppConfig struct {
	HTTPAddr         string
	RedisAddr        string
	RedisPass        string
	GatewayBaseURL   string
	GatewayServerKey string
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8031"),
		RedisAddr:        getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:        getEnv("REDIS_PASS", ""),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://app.sandbox.midtrans.com"),
		GatewayServerKey: getEnv("GATEWAY_SERVER_KEY", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
