package cli

import (
	"bytes"
	"testing"
)

func TestOutputMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		tty   bool
		plain bool
		json  bool
	}{
		{"ModeTTY", ModeTTY, true, false, false},
		{"ModePlain", ModePlain, false, true, false},
		{"ModeJSON", ModeJSON, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode}
			if got := cfg.IsTTY(); got != tt.tty {
				t.Errorf("IsTTY() = %v, want %v", got, tt.tty)
			}
			if got := cfg.IsPlain(); got != tt.plain {
				t.Errorf("IsPlain() = %v, want %v", got, tt.plain)
			}
			if got := cfg.IsJSON(); got != tt.json {
				t.Errorf("IsJSON() = %v, want %v", got, tt.json)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Writer == nil {
		t.Error("Writer should not be nil")
	}
}

func TestPlainEnvironments(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"NO_COLOR", "NO_COLOR", "1"},
		{"TERM=dumb", "TERM", "dumb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if cfg := DefaultConfig(); cfg.Mode != ModePlain {
				t.Errorf("Mode = %v, want ModePlain", cfg.Mode)
			}
		})
	}
}

func TestDetectNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	cfg := Detect(&buf)
	if !cfg.IsPlain() {
		t.Errorf("Mode = %v, want ModePlain for a buffer", cfg.Mode)
	}
	if cfg.Writer != &buf {
		t.Error("Writer should be the detected writer")
	}
}

func TestNewConfigWithMode(t *testing.T) {
	if cfg := NewConfigWithMode(ModeJSON); !cfg.IsJSON() {
		t.Errorf("Mode = %v, want ModeJSON", cfg.Mode)
	}
}

func TestEnableColors(t *testing.T) {
	original := defaultCfg
	defer func() { defaultCfg = original }()

	SetDefault(&Config{Mode: ModeTTY})
	if !EnableColors() {
		t.Error("EnableColors() should return true in TTY mode")
	}
	SetDefault(&Config{Mode: ModePlain})
	if EnableColors() {
		t.Error("EnableColors() should return false in Plain mode")
	}
	if got := Header("NAME"); got != "NAME" {
		t.Errorf("Header() in plain mode = %q, want raw text", got)
	}
	SetDefault(&Config{Mode: ModeJSON})
	if EnableColors() {
		t.Error("EnableColors() should return false in JSON mode")
	}
}
