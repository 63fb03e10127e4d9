package ui

import (
	"strings"
	"testing"

	"modpack-launcher/model"
)

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		source   model.Source
		expected string
	}{
		{model.SourceCurseForge, "CurseForge"},
		{model.SourceModrinth, "Modrinth"},
		{model.Source("other"), "other"},
	}
	for _, tt := range tests {
		if got := SourceLabel(tt.source); got != tt.expected {
			t.Errorf("SourceLabel(%q) = %q, want %q", tt.source, got, tt.expected)
		}
	}
}

func TestSourceColorFallback(t *testing.T) {
	if SourceColor(model.SourceModrinth) == SourceColor(model.SourceCurseForge) {
		t.Error("catalogs should have distinct colors")
	}
	if SourceColor("unknown") != 0xbbbbbb {
		t.Error("unknown catalog should fall back to grey")
	}
}

func TestColorizeKeepsText(t *testing.T) {
	out := ColorizeSource(model.SourceModrinth)
	if !strings.Contains(out, "Modrinth") {
		t.Errorf("ColorizeSource() = %q, text lost", out)
	}
}
