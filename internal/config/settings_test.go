package config

import (
	"path/filepath"
	"testing"

	"github.com/handiism/spotify-downloader/internal/model"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.AudioQuality != string(model.QualityVorbisHigh) {
		t.Errorf("default quality = %q, want %q", settings.AudioQuality, model.QualityVorbisHigh)
	}
	if settings.RemuxMode != RemuxModeFFmpeg {
		t.Errorf("default remux mode = %q, want %q", settings.RemuxMode, RemuxModeFFmpeg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	settings := DefaultSettings()
	settings.AudioQuality = string(model.QualityAACHigh)
	settings.SegmentWorkers = 8
	if err := settings.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AudioQuality != string(model.QualityAACHigh) {
		t.Errorf("loaded quality = %q, want %q", loaded.AudioQuality, model.QualityAACHigh)
	}
	if loaded.SegmentWorkers != 8 {
		t.Errorf("loaded workers = %d, want 8", loaded.SegmentWorkers)
	}
}

func TestToAudioQuality(t *testing.T) {
	tests := []struct {
		configured string
		want       model.AudioQuality
	}{
		{string(model.QualityAACMedium), model.QualityAACMedium},
		{string(model.QualityVorbisLow), model.QualityVorbisLow},
		{"", model.QualityVorbisHigh},
		{"lossless", model.QualityVorbisHigh},
	}
	for _, tt := range tests {
		settings := &Settings{AudioQuality: tt.configured}
		if got := settings.ToAudioQuality(); got != tt.want {
			t.Errorf("ToAudioQuality(%q) = %q, want %q", tt.configured, got, tt.want)
		}
	}
}
