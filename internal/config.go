package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Backup BackupConfig      `yaml:"backup"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backup.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BackupConfig holds the backup engine configuration.
type BackupConfig struct {
	Worlds          []string `yaml:"worlds"`           // world names to track
	WorldsDir       string   `yaml:"worlds_dir"`       // parent directory of world save folders
	DataDir         string   `yaml:"data_dir"`         // owned directory for archives, metadata, history
	SourceSubdir    string   `yaml:"source_subdir"`    // tracked subdirectory inside a world
	FileSuffix      string   `yaml:"file_suffix"`      // tracked file suffix
	IntervalMinutes int      `yaml:"interval_minutes"` // minutes between scheduled cycles
	ArchiveDays     int      `yaml:"archive_days"`     // active archive age before rotation
	MaxArchives     int      `yaml:"max_archives"`     // containers retained per world
	FlushCommand    string   `yaml:"flush_command"`    // optional pre-hash flush command
	Watch           bool     `yaml:"watch"`            // enable the fsnotify trigger
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Worlds, validation.Required, validation.Length(1, 0)),
		validation.Field(&c.WorldsDir, validation.Required),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.FileSuffix, validation.Required),
		validation.Field(&c.IntervalMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.ArchiveDays, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxArchives, validation.Required, validation.Min(1)),
	)
}

// Interval returns the scheduled cycle interval.
func (c *BackupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ArchiveAge returns the active-archive rotation threshold.
func (c *BackupConfig) ArchiveAge() time.Duration {
	return time.Duration(c.ArchiveDays) * 24 * time.Hour
}

// BackupsDir returns the parent directory of per-world backup dirs.
func (c *BackupConfig) BackupsDir() string {
	return filepath.Join(c.DataDir, "backups")
}

// MetadataPath returns the location of the metadata document.
func (c *BackupConfig) MetadataPath() string {
	return filepath.Join(c.DataDir, "file_metadata.yml")
}

// HistoryPath returns the location of the history database.
func (c *BackupConfig) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backup: BackupConfig{
			Worlds:          []string{"world"},
			WorldsDir:       "./worlds",
			DataDir:         "./saveward-data",
			SourceSubdir:    "region",
			FileSuffix:      ".mca",
			IntervalMinutes: 10,
			ArchiveDays:     7,
			MaxArchives:     50,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
