package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFormatsAndCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	scoped := l.WithField("match", "m1").WithFields(map[string]interface{}{"party": "alice"})
	scoped.Info("Match %s: party %s joined", "m1", "alice")
	l.Debug("plain %d", 7)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries[0].Message; got != "Match m1: party alice joined" {
		t.Fatalf("message = %q", got)
	}
	ctx := entries[0].ContextMap()
	if ctx["match"] != "m1" || ctx["party"] != "alice" {
		t.Fatalf("fields = %v", ctx)
	}
	if len(entries[1].ContextMap()) != 0 {
		t.Fatalf("base logger picked up scoped fields: %v", entries[1].ContextMap())
	}

	fields := scoped.Fields()
	if fields["match"] != "m1" || fields["party"] != "alice" {
		t.Fatalf("Fields() = %v", fields)
	}
}

func TestNewZapLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewZapLogger("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
	l, err := NewZapLogger("warn", true)
	if err != nil {
		t.Fatalf("NewZapLogger: %v", err)
	}
	l.Info("suppressed")
}
