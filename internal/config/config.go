package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config — конфигурация бота из переменных окружения.
type Config struct {
	TelegramToken   string
	DatabasePath    string
	SupabaseURL     string
	SupabaseKey     string
	RequiredChannel string // @канал, подписка на который обязательна; пусто — без проверки
	ReminderHour    int    // час локального времени для рассылки напоминаний
	LogLevel        string
}

func LoadConfig() (*Config, error) {
	// .env нужен только при локальном запуске, в продакшене переменные заданы снаружи
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg := &Config{
		TelegramToken:   token,
		DatabasePath:    getEnv("DATABASE_PATH", "expenses.db"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),
		RequiredChannel: os.Getenv("REQUIRED_CHANNEL"),
		ReminderHour:    12,
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
	}

	if v := os.Getenv("REMINDER_HOUR"); v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid REMINDER_HOUR %q", v)
		}
		cfg.ReminderHour = hour
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
