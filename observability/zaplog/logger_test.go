package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hostgpu/go-stream-runtime/core"
)

func TestWrap_ForwardsLevelsAndFields(t *testing.T) {
	zcore, logs := observer.New(zap.DebugLevel)
	logger := Wrap(zap.New(zcore))

	logger.Debug("debug msg", core.F("k", 1))
	logger.Info("info msg")
	logger.Warn("warn msg", core.F("stream", "null"))
	logger.Error("error msg")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}

	if entries[0].Level != zap.DebugLevel || entries[0].Message != "debug msg" {
		t.Errorf("entry 0 = %v %q", entries[0].Level, entries[0].Message)
	}
	if entries[2].Level != zap.WarnLevel {
		t.Errorf("entry 2 level = %v, want warn", entries[2].Level)
	}
	if entries[3].Level != zap.ErrorLevel {
		t.Errorf("entry 3 level = %v, want error", entries[3].Level)
	}

	fields := entries[2].ContextMap()
	if fields["stream"] != "null" {
		t.Errorf("warn fields = %v, want stream=null", fields)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	// New writes to stderr; this only checks construction does not panic
	// for every level/format combination and satisfies core.Logger.
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "bogus"} {
		for _, format := range []string{"console", "json"} {
			var l core.Logger = New(level, format)
			l.Info("constructed", core.F("level", level), core.F("format", format))
		}
	}
}
