package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNamedNilBase(t *testing.T) {
	l := Named(nil, "cart")
	if l == nil {
		t.Fatalf("expected no-op logger")
	}
	l.Info("discarded")
}
