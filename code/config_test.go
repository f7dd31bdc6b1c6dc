package code

import (
	"errors"
	"testing"
	"time"
)

func TestConfig_Validate_Zero(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected zero Config to be valid, got %v", err)
	}
}

func TestConfig_Validate_NegativeTimeout(t *testing.T) {
	cfg := Config{DefaultTimeout: -time.Second}
	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !containsStr(err.Error(), "DefaultTimeout") {
		t.Errorf("expected error to mention DefaultTimeout, got %q", err.Error())
	}
}

func TestConfig_DefaultLogger(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	if cfg.Logger == nil {
		t.Fatal("expected a default Logger")
	}
	cfg.Logger.Logf("no-op %d", 1)
}

func TestConfig_Logger_PreserveExisting(t *testing.T) {
	logger := &recordingLogger{}
	cfg := Config{Logger: logger}
	cfg.applyDefaults()
	if cfg.Logger != logger {
		t.Error("expected configured Logger to be kept")
	}
}

func TestNewStarlarkEngine_InvalidConfig(t *testing.T) {
	_, err := NewStarlarkEngine(Config{DefaultTimeout: -1})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
