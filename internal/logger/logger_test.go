package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetUserID(ctx, "user_42")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user_42", GetUserID(ctx))

	CtxInfo(ctx, "hello %s", "world")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello world", line["message"])
	assert.Equal(t, "req-1", line[FieldRequestID])
	assert.Equal(t, "user_42", line[FieldUserID])
	assert.Equal(t, "test", line["service"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Same(t, GetDefault(), FromContext(nil)) //nolint:staticcheck
}

func TestEntryMergesMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Format: "json", Output: &buf}).WithContext(context.Background())

	With(Fields{"message_id": "m1"}).WithStatus("stop").WithDuration(12).WithCount(3).Info(ctx, "done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stop", line[FieldStatus])
	assert.Equal(t, "m1", line["message_id"])
	assert.EqualValues(t, 12, line[FieldDurationMs])
	assert.EqualValues(t, 3, line[FieldCount])
}

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, "creatorkit", cfg.ServiceName)
}
