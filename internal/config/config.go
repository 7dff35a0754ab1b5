package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	JWTUserSecret string `env:"JWT_USER_SECRET"`

	CheckoutAPIURL        string `env:"CHECKOUT_API_URL"`
	CheckoutAPIKey        string `env:"CHECKOUT_API_KEY"`
	CheckoutWebhookSecret string `env:"CHECKOUT_WEBHOOK_SECRET"`
	CheckoutSuccessURL    string `env:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL     string `env:"CHECKOUT_CANCEL_URL"`

	NotifyAPIURL   string `env:"NOTIFY_API_URL"`
	NotifyBotToken string `env:"NOTIFY_BOT_TOKEN"`
	NotifyChatID   string `env:"NOTIFY_CHAT_ID"`
}

// LoadConfig собирает конфигурацию из .env файла (если есть), переменных
// окружения и флагов командной строки. Переменные окружения имеют приоритет
// над флагами.
func LoadConfig() (*Config, error) {
	// .env опционален, его отсутствие не является ошибкой.
	_ = godotenv.Load()

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("JWT user secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT signing secret for user tokens")
	flag.StringVar(&flagConfig.CheckoutAPIURL, "c", "", "Checkout gateway base URL")
	flag.StringVar(&flagConfig.CheckoutAPIKey, "k", "", "Checkout gateway API key")
	flag.StringVar(&flagConfig.CheckoutWebhookSecret, "w", "", "Checkout webhook signing secret")
	flag.StringVar(&flagConfig.CheckoutSuccessURL, "s", "http://localhost:8080/payments/success", "Checkout success redirect URL")
	flag.StringVar(&flagConfig.CheckoutCancelURL, "x", "http://localhost:8080/payments/cancel", "Checkout cancel redirect URL")
	flag.StringVar(&flagConfig.NotifyAPIURL, "n", "https://api.telegram.org", "Notification API base URL")
	flag.StringVar(&flagConfig.NotifyBotToken, "t", "", "Notification bot token")
	flag.StringVar(&flagConfig.NotifyChatID, "i", "", "Notification chat ID")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:            defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:           defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:         defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTUserSecret:         defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret),
		CheckoutAPIURL:        defaultIfBlank(envConfig.CheckoutAPIURL, flagsConfig.CheckoutAPIURL),
		CheckoutAPIKey:        defaultIfBlank(envConfig.CheckoutAPIKey, flagsConfig.CheckoutAPIKey),
		CheckoutWebhookSecret: defaultIfBlank(envConfig.CheckoutWebhookSecret, flagsConfig.CheckoutWebhookSecret),
		CheckoutSuccessURL:    defaultIfBlank(envConfig.CheckoutSuccessURL, flagsConfig.CheckoutSuccessURL),
		CheckoutCancelURL:     defaultIfBlank(envConfig.CheckoutCancelURL, flagsConfig.CheckoutCancelURL),
		NotifyAPIURL:          defaultIfBlank(envConfig.NotifyAPIURL, flagsConfig.NotifyAPIURL),
		NotifyBotToken:        defaultIfBlank(envConfig.NotifyBotToken, flagsConfig.NotifyBotToken),
		NotifyChatID:          defaultIfBlank(envConfig.NotifyChatID, flagsConfig.NotifyChatID),
	}
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
