package main

import (
	"testing"

	"chatrelay/internal/app"
	"chatrelay/internal/config"
)

func TestConfigurationValidation(t *testing.T) {
	cfg := config.DefaultConfig()

	// Defaults alone are not runnable: the token secret must be provided.
	if err := cfg.Validate(); err == nil {
		t.Error("Config without a token secret should fail validation")
	}

	cfg.Auth.TokenSecret = "test-secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Config with a secret should be valid: %v", err)
	}

	cfg.HTTP.Port = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Invalid port should fail validation")
	}
}

func TestApplicationConstructorRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.TokenSecret = "test-secret"
	cfg.HTTP.Port = -1

	application, err := app.NewApplication(cfg)
	if err == nil {
		t.Error("Constructor should reject invalid configuration")
	}
	if application != nil {
		t.Error("Constructor should not return an application for invalid config")
	}
}
