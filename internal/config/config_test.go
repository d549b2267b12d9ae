package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		t.Setenv("DATA_DIR", "/tmp/mensstore")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
		t.Setenv("NOTIFY_TOPIC", "order-events")
		t.Setenv("PAYMENT_APIKEY", "pay_secret")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "/tmp/mensstore", cfg.DataDir)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "order-events", cfg.NotifyTopic)
		assert.Equal(t, "pay_secret", cfg.PaymentAPIKey)
	})

	t.Run("No brokers configured", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		t.Setenv("DATA_DIR", "/tmp/mensstore")
		t.Setenv("KAFKA_BROKERS", "")

		cfg := LoadConfig()

		assert.Nil(t, cfg.KafkaBrokers)
	})
}
