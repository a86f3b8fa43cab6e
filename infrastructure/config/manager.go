package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// ConfigManager reads and writes single dotted keys such as "imgur.client_id"
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Entry is one key/value pair as shown by "config show"
type Entry struct {
	Key    string
	Value  string
	Secret bool
}

type field struct {
	get    func(*Config) string
	set    func(*Config, string) error
	secret bool
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error { *ptr(c) = v; return nil },
	}
}

func secretField(ptr func(*Config) *string) field {
	f := stringField(ptr)
	f.secret = true
	return f
}

func oneOfField(ptr func(*Config) *string, allowed ...string) field {
	f := stringField(ptr)
	f.set = func(c *Config, v string) error {
		v = strings.ToLower(v)
		for _, a := range allowed {
			if v == a {
				*ptr(c) = v
				return nil
			}
		}
		return fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidValue, v, strings.Join(allowed, ", "))
	}
	return f
}

func intField(ptr func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("%w: %q is not a positive integer", ErrInvalidValue, v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(ptr func(*Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

var fields = map[string]field{
	"tenor.api_key":              secretField(func(c *Config) *string { return &c.Tenor.APIKey }),
	"tenor.base_url":             stringField(func(c *Config) *string { return &c.Tenor.BaseURL }),
	"tenor.media_format":         stringField(func(c *Config) *string { return &c.Tenor.MediaFormat }),
	"tenor.reference_query":      stringField(func(c *Config) *string { return &c.Tenor.ReferenceQuery }),
	"tenor.reference_candidates": intField(func(c *Config) *int { return &c.Tenor.ReferenceCandidates }),
	"imgur.client_id":            secretField(func(c *Config) *string { return &c.Imgur.ClientID }),
	"imgur.base_url":             stringField(func(c *Config) *string { return &c.Imgur.BaseURL }),
	"hosting.provider":           oneOfField(func(c *Config) *string { return &c.Hosting.Provider }, ProviderImgur, ProviderDrive),
	"drive.auth":                 oneOfField(func(c *Config) *string { return &c.Drive.Auth }, DriveAuthOAuth, DriveAuthServiceAccount),
	"drive.credentials_file":     stringField(func(c *Config) *string { return &c.Drive.CredentialsFile }),
	"drive.token_file":           stringField(func(c *Config) *string { return &c.Drive.TokenFile }),
	"drive.folder_id":            stringField(func(c *Config) *string { return &c.Drive.FolderID }),
	"ffmpeg.path":                stringField(func(c *Config) *string { return &c.FFmpeg.Path }),
	"ffmpeg.font_file":           stringField(func(c *Config) *string { return &c.FFmpeg.FontFile }),
	"ffmpeg.font_size":           intField(func(c *Config) *int { return &c.FFmpeg.FontSize }),
	"ffmpeg.scale_width":         intField(func(c *Config) *int { return &c.FFmpeg.ScaleWidth }),
	"ffmpeg.scale_height":        intField(func(c *Config) *int { return &c.FFmpeg.ScaleHeight }),
	"stitch.strategy":            oneOfField(func(c *Config) *string { return &c.Stitch.Strategy }, "strict", "flexible", "auto"),
	"paths.work_directory":       stringField(func(c *Config) *string { return &c.Paths.WorkDirectory }),
	"history.enabled":            boolField(func(c *Config) *bool { return &c.History.Enabled }),
	"history.database":           stringField(func(c *Config) *string { return &c.History.Database }),
	"log.level":                  oneOfField(func(c *Config) *string { return &c.Log.Level }, "trace", "debug", "info", "warn", "error"),
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(key string) (field, string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	f, ok := fields[key]
	if !ok {
		return field{}, key, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f, key, nil
}

// Get returns the current value of key
func (m *ConfigManager) Get(key string) (string, error) {
	f, _, err := lookup(key)
	if err != nil {
		return "", err
	}
	return f.get(m.config), nil
}

// Set validates and stores value under key, then saves the file
func (m *ConfigManager) Set(key, value string) error {
	f, key, err := lookup(key)
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	if err := f.set(m.config, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return Save(m.config, m.configPath)
}

// List returns every key with its value; secrets are masked
func (m *ConfigManager) List() []Entry {
	keys := Keys()
	result := make([]Entry, 0, len(keys))
	for _, k := range keys {
		f := fields[k]
		v := f.get(m.config)
		if f.secret {
			v = Mask(v)
		}
		result = append(result, Entry{Key: k, Value: v, Secret: f.secret})
	}
	return result
}

// Mask hides all but the last four characters of a secret
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// SuggestSetCommand returns the command that sets a missing key
func SuggestSetCommand(key string) string {
	return fmt.Sprintf(`time-for config set %s "<value>"`, key)
}
