package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		debugSeen bool
	}{
		{name: "debug level emits debug", level: "debug", debugSeen: true},
		{name: "info level drops debug", level: "info", debugSeen: false},
		{name: "invalid level defaults to info", level: "nope", debugSeen: false},
		{name: "empty level defaults to info", level: "", debugSeen: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, false)
			log.Debug().Msg(testMessage)
			assert.Equal(t, tt.debugSeen, buf.Len() > 0)
		})
	}
}

func TestEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false)

	log.Info().
		Str("method", "GET").
		Int("status", 200).
		Int64("bytes", 42).
		Bool("cached", true).
		Dur("elapsed", 1500*time.Millisecond).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.InDelta(t, 200, entry["status"], 0)
	assert.InDelta(t, 42, entry["bytes"], 0)
	assert.Equal(t, true, entry["cached"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "time")
}

func TestSensitiveStringsAreMasked(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false)

	log.Debug().
		Str("access_token", "eyJhbGciOi").
		Str("url", "http://localhost/api").
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["access_token"])
	assert.Equal(t, "http://localhost/api", entry["url"])
}

func TestInterfaceHeadersAreMasked(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer abc")
	headers.Set("Accept", "application/json")
	log.Debug().Interface("headers", headers).Msg(testMessage)

	entry := decodeLine(t, &buf)
	logged, ok := entry["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{DefaultMaskValue}, logged["Authorization"])
	assert.Equal(t, []any{"application/json"}, logged["Accept"])
}

func TestWithFieldsFiltersAndAttaches(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", false).WithFields(map[string]any{
		"component":     "httpclient",
		"refresh_token": "r-123",
	})

	log.Info().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "httpclient", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["refresh_token"])
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error().Str("k", "v").Msg(testMessage)
		log.Debug().Msgf("%d", 1)
	})
}
