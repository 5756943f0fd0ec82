package app

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfig verifies basic config loading.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.SocialAuth != "bearer" {
		t.Errorf("SocialAuth = %s, want bearer", config.SocialAuth)
	}
	if config.GeminiModel == "" {
		t.Error("GeminiModel not set to default")
	}
}

// TestConfig_EnvironmentVariables verifies SKINMAP_* loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("SKINMAP_DB", "/tmp/kb.db")
	t.Setenv("SKINMAP_ANNOTATE", "true")
	t.Setenv("SKINMAP_SOURCE_OF_TRUTH", "expert_review")
	t.Setenv("SKINMAP_SOCIAL_BASE_URL", "https://social.example.com/v1")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.Database != "/tmp/kb.db" {
		t.Errorf("Database = %s, want /tmp/kb.db", config.Database)
	}
	if !config.Annotate {
		t.Error("SKINMAP_ANNOTATE not loaded")
	}
	if config.SourceOfTruth != "expert_review" {
		t.Errorf("SourceOfTruth = %s, want expert_review", config.SourceOfTruth)
	}
	if config.SocialBaseURL != "https://social.example.com/v1" {
		t.Errorf("SocialBaseURL = %s", config.SocialBaseURL)
	}
}

// TestConfig_File verifies loading an explicit config file.
func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skinmap.yaml")
	content := "policy: overrides.yaml\nsocial_stats: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKINMAP_CONFIG", path)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %s, want %s", config.ConfigFile, path)
	}
	if config.PolicyFile != "overrides.yaml" {
		t.Errorf("PolicyFile = %s, want overrides.yaml", config.PolicyFile)
	}
	if !config.SocialStats {
		t.Error("social_stats not loaded from file")
	}
}

// TestConfig_UpdateFromFlags verifies flag precedence.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "json", LogLevel: "info"}
	config.UpdateFromFlags(true, false, true, "", "debug")

	if !config.Verbose || !config.NoColor {
		t.Error("boolean flags not applied")
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, empty flag must keep json", config.Format)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}
}
