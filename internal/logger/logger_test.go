package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, log)
}

func useBuffer(buf *bytes.Buffer, opts *slog.HandlerOptions) {
	log = slog.New(slog.NewJSONHandler(buf, opts))
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, nil)

	Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "value")
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, nil)

	Error("test error")

	assert.Contains(t, buf.String(), "test error")
}

func TestDebug(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	Debug("test debug")

	assert.Contains(t, buf.String(), "test debug")
}

func TestInfof(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, nil)

	Infof("test %s", "message")

	assert.Contains(t, buf.String(), "message")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, nil)

	WithError(assert.AnError).Info("test with error")

	output := buf.String()
	assert.Contains(t, output, "test with error")
	assert.Contains(t, output, "error")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	useBuffer(&buf, nil)

	WithFields(map[string]any{"key1": "value1", "key2": 123}).Info("test with fields")

	output := buf.String()
	assert.Contains(t, output, "key1")
	assert.Contains(t, output, "value1")
}
