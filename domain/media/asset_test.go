package media

import (
	"path/filepath"
	"testing"
)

func TestAsset_DerivedPaths(t *testing.T) {
	tests := []struct {
		name        string
		base        string
		wantCaption string
		wantScaled  string
	}{
		{
			name:        "webm clip",
			base:        filepath.Join("work", "query.webm"),
			wantCaption: filepath.Join("work", "query_text.webm"),
			wantScaled:  filepath.Join("work", "query_scaled.webm"),
		},
		{
			name:        "mp4 clip keeps extension",
			base:        filepath.Join("work", "look_at_time.mp4"),
			wantCaption: filepath.Join("work", "look_at_time_text.mp4"),
			wantScaled:  filepath.Join("work", "look_at_time_scaled.mp4"),
		},
		{
			name:        "missing extension defaults to webm",
			base:        filepath.Join("work", "clip"),
			wantCaption: filepath.Join("work", "clip_text.webm"),
			wantScaled:  filepath.Join("work", "clip_scaled.webm"),
		},
		{
			name:        "dots in stem",
			base:        filepath.Join("work", "my.clip.webm"),
			wantCaption: filepath.Join("work", "my.clip_text.webm"),
			wantScaled:  filepath.Join("work", "my.clip_scaled.webm"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAsset(tt.base)
			if got := a.WithCaption(); got != tt.wantCaption {
				t.Errorf("WithCaption() = %q, want %q", got, tt.wantCaption)
			}
			if got := a.Scaled(); got != tt.wantScaled {
				t.Errorf("Scaled() = %q, want %q", got, tt.wantScaled)
			}
		})
	}
}

func TestAsset_DerivationIsPure(t *testing.T) {
	bases := []string{"query.webm", "/tmp/time-for/look_at_time.webm", "noext", "a/b/c.gif"}

	for _, base := range bases {
		first := NewAsset(base)
		second := NewAsset(base)

		if first.WithCaption() != second.WithCaption() || first.WithCaption() != first.WithCaption() {
			t.Errorf("WithCaption not stable for %q", base)
		}
		if first.Scaled() != second.Scaled() || first.Scaled() != first.Scaled() {
			t.Errorf("Scaled not stable for %q", base)
		}
		if first.WithCaption() == base || first.Scaled() == base {
			t.Errorf("derived path equals base for %q", base)
		}
		if first.WithCaption() == first.Scaled() {
			t.Errorf("caption and scaled paths collide for %q", base)
		}
		if first.Base() != base {
			t.Errorf("Base() = %q, want %q", first.Base(), base)
		}
	}
}

func TestWithExtension(t *testing.T) {
	if got := WithExtension(filepath.Join("w", "full.webm"), "gif"); got != filepath.Join("w", "full.gif") {
		t.Errorf("WithExtension() = %q", got)
	}
	if got := WithExtension("full", "gif"); got != "full.gif" {
		t.Errorf("WithExtension() = %q", got)
	}
}
