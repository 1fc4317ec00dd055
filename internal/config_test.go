package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestBackupConfig_NoWorldsFails(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Backup.Worlds = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty worlds list should fail validation")
	}
}

func TestBackupConfig_ZeroIntervalFails(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Backup.IntervalMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval should fail validation")
	}
}

func TestBackupConfig_DerivedDurations(t *testing.T) {
	cfg := BackupConfig{IntervalMinutes: 10, ArchiveDays: 7}
	if got := cfg.Interval(); got != 10*time.Minute {
		t.Errorf("Interval = %s", got)
	}
	if got := cfg.ArchiveAge(); got != 7*24*time.Hour {
		t.Errorf("ArchiveAge = %s", got)
	}
}

func TestBackupConfig_DerivedPaths(t *testing.T) {
	cfg := BackupConfig{DataDir: "/var/lib/saveward"}
	if got := cfg.BackupsDir(); got != "/var/lib/saveward/backups" {
		t.Errorf("BackupsDir = %q", got)
	}
	if got := cfg.MetadataPath(); got != "/var/lib/saveward/file_metadata.yml" {
		t.Errorf("MetadataPath = %q", got)
	}
	if got := cfg.HistoryPath(); got != "/var/lib/saveward/history.db" {
		t.Errorf("HistoryPath = %q", got)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
