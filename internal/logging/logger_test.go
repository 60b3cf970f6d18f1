package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitRoutesGlobalOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)
	defer Init(LevelInfo, nil)

	Debug("hidden detail")
	Info("encode started", "label", "pass 2")

	out := buf.String()
	if strings.Contains(out, "hidden detail") {
		t.Errorf("debug message leaked at info level: %q", out)
	}
	if !strings.Contains(out, "encode started") || !strings.Contains(out, "pass 2") {
		t.Errorf("info message missing from output: %q", out)
	}
}

func TestInitDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)
	defer Init(LevelInfo, nil)

	Debug("encoder invocation")
	if !strings.Contains(buf.String(), "encoder invocation") {
		t.Errorf("debug message missing at debug level: %q", buf.String())
	}
}

func TestNewNilWriterDiscards(t *testing.T) {
	logger := New(LevelDebug, nil)
	logger.Info("dropped")
}
