package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log := New("test")
	assert.NotNil(t, log)
}

func TestLoggerLevels(t *testing.T) {
	log := New("test")

	log.Debug("debug message", String("key", "value"))
	log.Info("info message", Int("count", 42))
	log.Warn("warning message", Bool("flag", true))
	log.Error("error message", Err(errors.New("boom")))
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "test").With(String("module", "azure"))

	log.Info("scoped message", Int("scopes", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "azure", entry["module"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, float64(3), entry["scopes"])
	assert.Equal(t, "scoped message", entry["message"])
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "test")

	log.Info("field types",
		String("string", "value"),
		Int("int", 42),
		Int64("int64", int64(999)),
		Bool("bool", true),
		Strings("list", []string{"a", "b"}),
		Err(errors.New("bad")),
		Any("any", map[string]interface{}{"key": "value"}),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "value", entry["string"])
	assert.Equal(t, "bad", entry["error"])
}

func TestWarnEventsCountable(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "test")

	log.Warn("first")
	log.Warn("second")
	log.Info("not a warning")

	warns := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"level":"warn"`) {
			warns++
		}
	}
	assert.Equal(t, 2, warns)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warning", "warn"},
		{"error", "error"},
		{"nonsense", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input).String())
		})
	}
}

func TestLoggerConcurrency(t *testing.T) {
	log := New("test")

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			log.Info("concurrent log", Int("goroutine", id))
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
