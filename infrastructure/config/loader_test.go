package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tenor:
  api_key: tenor-key
imgur:
  client_id: imgur-id
ffmpeg:
  font_size: 30
history:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tenor.APIKey != "tenor-key" || cfg.Imgur.ClientID != "imgur-id" {
		t.Errorf("secrets = %q / %q", cfg.Tenor.APIKey, cfg.Imgur.ClientID)
	}
	if cfg.FFmpeg.FontSize != 30 {
		t.Errorf("FontSize = %d, want 30", cfg.FFmpeg.FontSize)
	}
	if cfg.FFmpeg.ScaleWidth != 480 || cfg.FFmpeg.ScaleHeight != 270 {
		t.Errorf("scale = %dx%d, want 480x270", cfg.FFmpeg.ScaleWidth, cfg.FFmpeg.ScaleHeight)
	}
	if cfg.Tenor.ReferenceQuery != "look at time" || cfg.Tenor.ReferenceCandidates != 16 {
		t.Errorf("reference = %q/%d", cfg.Tenor.ReferenceQuery, cfg.Tenor.ReferenceCandidates)
	}
	if cfg.Hosting.Provider != ProviderImgur {
		t.Errorf("Provider = %q", cfg.Hosting.Provider)
	}
	if cfg.History.Enabled {
		t.Error("explicit history.enabled=false was overridden")
	}
}

func TestLoad_MissingHistoryKeepsEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.History.Enabled {
		t.Error("history should default to enabled")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("tenor: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for invalid yaml")
	}
	if _, err := LoadOrDefault(bad); err == nil {
		t.Error("LoadOrDefault should still report invalid yaml")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.FFmpeg.Path != "ffmpeg" || cfg.Stitch.Strategy != "strict" || !cfg.History.Enabled {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Tenor.APIKey = "k"
	cfg.Drive.FolderID = "folder"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tenor.APIKey != "k" || loaded.Drive.FolderID != "folder" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTenorAPIKey:   "from-env",
		EnvImgurClientID: "  ",
	}
	cfg := Default()
	cfg.Tenor.APIKey = "from-file"
	cfg.Imgur.ClientID = "file-id"

	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Tenor.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env should win", cfg.Tenor.APIKey)
	}
	if cfg.Imgur.ClientID != "file-id" {
		t.Errorf("ClientID = %q, blank env should not override", cfg.Imgur.ClientID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"complete imgur config", func(c *Config) {}, false},
		{"missing tenor key", func(c *Config) { c.Tenor.APIKey = "" }, true},
		{"missing imgur id", func(c *Config) { c.Imgur.ClientID = "" }, true},
		{"drive needs no imgur id", func(c *Config) { c.Hosting.Provider = ProviderDrive; c.Imgur.ClientID = "" }, false},
		{"bad drive auth", func(c *Config) { c.Hosting.Provider = ProviderDrive; c.Drive.Auth = "password" }, true},
		{"unknown provider", func(c *Config) { c.Hosting.Provider = "dropbox" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Tenor.APIKey = "k"
			cfg.Imgur.ClientID = "id"
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
