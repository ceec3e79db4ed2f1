package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == "" {
		t.Fatal("expected default port")
	}
	if cfg.DictionaryTTLSeconds < 1 {
		t.Fatalf("expected positive dictionary TTL, got %d", cfg.DictionaryTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		t.Fatalf("expected positive token TTL, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("DICTIONARY_TTL_SECONDS", "-5")

	cfg := Load()
	if cfg.Port != "9191" {
		t.Fatalf("expected port 9191, got %q", cfg.Port)
	}
	if cfg.DictionaryTTLSeconds != 60 {
		t.Fatalf("expected TTL fallback 60 for invalid value, got %d", cfg.DictionaryTTLSeconds)
	}
}
