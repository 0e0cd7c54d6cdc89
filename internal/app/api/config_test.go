package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opevents "github.com/Apurer/book-distribution-api/internal/domains/operations/adapters/events"
	opapp "github.com/Apurer/book-distribution-api/internal/domains/operations/application"
	platformpostgres "github.com/Apurer/book-distribution-api/internal/platform/postgres"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "POSTGRES_DSN", "TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED",
		"SESSION_TTL_HOURS", "EVENTS_BROKER", "AMQP_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "METRICS_ENABLED",
		"EVENTS_PUBLISH_TIMEOUT", "POSTGRES_MAX_OPEN_CONNS", "POSTGRES_MAX_IDLE_CONNS",
		"POSTGRES_CONN_MAX_LIFETIME", "POSTGRES_SLOW_QUERY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, BrokerNone, cfg.EventsBroker)
	assert.Equal(t, opevents.DefaultKafkaTopic, cfg.KafkaTopic)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, opapp.DefaultPublishTimeout, cfg.PublishTimeout)
	assert.False(t, cfg.TemporalDisabled)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, platformpostgres.DefaultPool, cfg.Pool)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("EVENTS_BROKER", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("METRICS_ENABLED", "no")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("EVENTS_PUBLISH_TIMEOUT", "750ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, BrokerKafka, cfg.EventsBroker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.TemporalDisabled)
	assert.Equal(t, 750*time.Millisecond, cfg.PublishTimeout)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"ttl":           {"SESSION_TTL_HOURS": "0"},
		"broker":        {"EVENTS_BROKER": "nats"},
		"kafka brokers": {"EVENTS_BROKER": "kafka"},
		"timeout":       {"EVENTS_PUBLISH_TIMEOUT": "soon"},
		"pool":          {"POSTGRES_MAX_OPEN_CONNS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConnectTemporalDisabled(t *testing.T) {
	_, err := ConnectTemporal(Config{TemporalDisabled: true}, nil)
	assert.Error(t, err)
}

func TestBuildPublisherNone(t *testing.T) {
	publisher, err := buildPublisher(Config{EventsBroker: BrokerNone}, nil, effectiveLogger(nil))
	require.NoError(t, err)
	assert.Nil(t, publisher)

	_, err = buildPublisher(Config{EventsBroker: "nats"}, nil, effectiveLogger(nil))
	assert.Error(t, err)
}
