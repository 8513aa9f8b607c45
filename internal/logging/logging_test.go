package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("bridge")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("surface attached", "surface", "main")

	out := buf.String()
	if !strings.Contains(out, "msg=\"surface attached\"") {
		t.Fatalf("expected plain message, got: %s", out)
	}
	if !strings.Contains(out, "component=bridge") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "surface=main") {
		t.Fatalf("expected surface field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("coordinator")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	for _, s := range []string{"", "verbose", "INFO", "  info  "} {
		if got := parseLevel(s); got.Level() > parseLevel("info").Level() {
			t.Errorf("parseLevel(%q) = %v, want info or lower", s, got)
		}
	}
}
