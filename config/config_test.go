package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateRejectsBadWebhook(t *testing.T) {
	cfg := Default()
	cfg.AuthorityWebhook = "not-a-host"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateAcceptsSchemeQualifiedWebhook(t *testing.T) {
	cfg := Default()
	cfg.AuthorityWebhook = "https://authority.example.internal/hook"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateRejectsNonPositiveThreshold(t *testing.T) {
	cfg := Default()
	cfg.AuthorityFailThreshold = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error")
	}
}
