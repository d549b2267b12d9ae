package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	DataDir       string
	JWTSecret     string
	KafkaBrokers  []string
	NotifyTopic   string
	PaymentAPIKey string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        os.Getenv("APP_ENV"),
		DataDir:       os.Getenv("DATA_DIR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		NotifyTopic:   os.Getenv("NOTIFY_TOPIC"),
		PaymentAPIKey: os.Getenv("PAYMENT_APIKEY"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.DataDir == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
