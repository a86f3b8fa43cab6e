package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file lives unless --config says otherwise
const DefaultPath = "config/config.yaml"

// Environment variables that override secrets from the file
const (
	EnvTenorAPIKey   = "TENOR_API_KEY"
	EnvImgurClientID = "IMGUR_CLIENT_ID"
)

// Config represents the complete application configuration
type Config struct {
	Tenor   TenorConfig   `yaml:"tenor"`
	Imgur   ImgurConfig   `yaml:"imgur"`
	Hosting HostingConfig `yaml:"hosting"`
	Drive   DriveConfig   `yaml:"drive"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Stitch  StitchConfig  `yaml:"stitch"`
	Paths   PathsConfig   `yaml:"paths"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// TenorConfig contains clip search settings
type TenorConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	MediaFormat         string `yaml:"media_format"`
	ReferenceQuery      string `yaml:"reference_query"`
	ReferenceCandidates int    `yaml:"reference_candidates"`
}

// ImgurConfig contains Imgur upload settings
type ImgurConfig struct {
	ClientID string `yaml:"client_id"`
	BaseURL  string `yaml:"base_url"`
}

// HostingConfig selects the upload provider
type HostingConfig struct {
	Provider string `yaml:"provider"`
}

// DriveConfig contains Google Drive upload settings
type DriveConfig struct {
	Auth            string `yaml:"auth"` // oauth or service_account
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
}

// FFmpegConfig contains transcoding settings
type FFmpegConfig struct {
	Path        string `yaml:"path"`
	FontFile    string `yaml:"font_file"`
	FontSize    int    `yaml:"font_size"`
	ScaleWidth  int    `yaml:"scale_width"`
	ScaleHeight int    `yaml:"scale_height"`
}

// StitchConfig contains the default concat strategy
type StitchConfig struct {
	Strategy string `yaml:"strategy"`
}

// PathsConfig contains directory paths for intermediate and final clips
type PathsConfig struct {
	WorkDirectory string `yaml:"work_directory"`
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Hosting providers
const (
	ProviderImgur = "imgur"
	ProviderDrive = "drive"
)

// Drive authentication modes
const (
	DriveAuthOAuth          = "oauth"
	DriveAuthServiceAccount = "service_account"
)

// Default returns a configuration with every optional value filled in
func Default() *Config {
	cfg := &Config{History: HistoryConfig{Enabled: true}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with their defaults
func (c *Config) ApplyDefaults() {
	setDefault(&c.Tenor.BaseURL, "https://tenor.googleapis.com/v2")
	setDefault(&c.Tenor.MediaFormat, "webm")
	setDefault(&c.Tenor.ReferenceQuery, "look at time")
	if c.Tenor.ReferenceCandidates <= 0 {
		c.Tenor.ReferenceCandidates = 16
	}

	setDefault(&c.Imgur.BaseURL, "https://api.imgur.com/3")
	setDefault(&c.Hosting.Provider, ProviderImgur)

	setDefault(&c.Drive.Auth, DriveAuthOAuth)
	setDefault(&c.Drive.CredentialsFile, "config/credentials.json")
	setDefault(&c.Drive.TokenFile, "config/token.json")

	setDefault(&c.FFmpeg.Path, "ffmpeg")
	setDefault(&c.FFmpeg.FontFile, "assets/Montserrat-Bold.ttf")
	if c.FFmpeg.FontSize <= 0 {
		c.FFmpeg.FontSize = 22
	}
	if c.FFmpeg.ScaleWidth <= 0 || c.FFmpeg.ScaleHeight <= 0 {
		c.FFmpeg.ScaleWidth, c.FFmpeg.ScaleHeight = 480, 270
	}

	setDefault(&c.Stitch.Strategy, "strict")
	setDefault(&c.History.Database, filepath.Join(os.TempDir(), "time-for", "history.db"))
	setDefault(&c.Log.Level, "warn")
}

// ApplyEnv overrides secrets with environment values when they are set
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvTenorAPIKey)); v != "" {
		c.Tenor.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvImgurClientID)); v != "" {
		c.Imgur.ClientID = v
	}
}

// Validate checks the values the pipeline cannot run without
func (c *Config) Validate() error {
	if c.Tenor.APIKey == "" {
		return fmt.Errorf("tenor api key is not set (run 'time-for setup' or export %s)", EnvTenorAPIKey)
	}
	switch c.Hosting.Provider {
	case ProviderImgur:
		if c.Imgur.ClientID == "" {
			return fmt.Errorf("imgur client id is not set (run 'time-for setup' or export %s)", EnvImgurClientID)
		}
	case ProviderDrive:
		if c.Drive.Auth != DriveAuthOAuth && c.Drive.Auth != DriveAuthServiceAccount {
			return fmt.Errorf("unknown drive auth %q (expected %s or %s)", c.Drive.Auth, DriveAuthOAuth, DriveAuthServiceAccount)
		}
	default:
		return fmt.Errorf("unknown hosting provider %q (expected %s or %s)", c.Hosting.Provider, ProviderImgur, ProviderDrive)
	}
	return nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{History: HistoryConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as an empty one
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// 0600: the file holds API keys
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
