package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("SERVICE_VERSION", "1.4.0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4318 ")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")

	cfg := ConfigFromEnv("bookdist-api")
	assert.Equal(t, "bookdist-api", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.False(t, cfg.Insecure)
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
}

func TestResourceAttributesNameTheLedgerService(t *testing.T) {
	attrs := attribute.NewSet(resourceAttributes(Config{ServiceName: "bookdist-worker", ServiceVersion: "dev", Environment: "local"})...)
	ns, ok := attrs.Value("service.namespace")
	require.True(t, ok)
	assert.Equal(t, ServiceNamespace, ns.AsString())
	name, _ := attrs.Value("service.name")
	assert.Equal(t, "bookdist-worker", name.AsString())
}

func TestInitLogsWithServiceFields(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var logs bytes.Buffer
	instruments, shutdown, err := Init(context.Background(), Config{
		ServiceName: "bookdist-api", Environment: "test", ServiceVersion: "dev",
		OTLPEndpoint: "127.0.0.1:1", Insecure: true, LogLevel: slog.LevelWarn, LogOutput: &logs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	instruments.Logger.Info("hidden below warn")
	instruments.Logger.Warn("ledger degraded")
	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line), logs.String())
	assert.Equal(t, "ledger degraded", line["msg"])
	assert.Equal(t, "bookdist-api", line["service"])
	assert.Equal(t, "test", line["env"])
	assert.NotNil(t, instruments.Tracer("t"))
	assert.NotNil(t, instruments.Meter("m"))
}
