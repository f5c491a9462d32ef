package model

import (
	"strings"
	"testing"
)

func TestSelectAudioFile(t *testing.T) {
	files := []AudioFile{
		{FileID: "low", Format: "OGG_VORBIS_96"},
		{FileID: "medium", Format: "OGG_VORBIS_160"},
	}

	tests := []struct {
		name      string
		requested AudioQuality
		files     []AudioFile
		wantID    string
		wantTier  AudioQuality
		wantOK    bool
	}{
		{
			name:      "closest tier below request wins",
			requested: QualityVorbisHigh,
			files:     files,
			wantID:    "medium",
			wantTier:  QualityVorbisMedium,
			wantOK:    true,
		},
		{
			name:      "exact tier",
			requested: QualityVorbisMedium,
			files:     files,
			wantID:    "medium",
			wantTier:  QualityVorbisMedium,
			wantOK:    true,
		},
		{
			name:      "never upgrades above request",
			requested: QualityVorbisLow,
			files:     []AudioFile{{FileID: "high", Format: "OGG_VORBIS_320"}},
			wantOK:    false,
		},
		{
			name:      "no matching ladder",
			requested: QualityAACHigh,
			files:     files,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, file, ok := SelectAudioFile(tt.requested, tt.files)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if file.FileID != tt.wantID {
				t.Errorf("file = %q, want %q", file.FileID, tt.wantID)
			}
			if tier != tt.wantTier {
				t.Errorf("tier = %q, want %q", tier, tt.wantTier)
			}
		})
	}
}

func TestVideoManifestSegmentURLs(t *testing.T) {
	m := &VideoManifest{
		BaseURL:              "https://cdn.example.com/",
		InitTemplate:         "v1/{{profile_id}}/init.{{file_type}}",
		SegmentTemplate:      "v1/{{profile_id}}/{{segment_timestamp}}.{{file_type}}",
		SegmentLengthSeconds: 5,
		EndTimeMillis:        9_000,
	}
	profile := VideoProfile{ID: 7, FileType: "mp4"}

	urls := m.SegmentURLs(profile)
	if urls[0] != "https://cdn.example.com/v1/7/init.mp4" {
		t.Errorf("init URL = %q", urls[0])
	}
	// 9s of content plus the safety margin expands to timestamps 0,5,10.
	if len(urls) != 4 {
		t.Fatalf("got %d URLs, want 4", len(urls))
	}
	for i, want := range []string{"0.mp4", "5.mp4", "10.mp4"} {
		if !strings.HasSuffix(urls[i+1], want) {
			t.Errorf("segment %d = %q, want suffix %q", i, urls[i+1], want)
		}
	}
}

func TestVideoManifestProfileFiltering(t *testing.T) {
	m := &VideoManifest{
		Encryptions: []EncryptionInfo{
			{KeySystem: "playready"},
			{KeySystem: "widevine", Data: []byte{1}},
		},
		Profiles: []VideoProfile{
			{ID: 1, MimeType: "video/mp4", VideoBitrate: 1000, EncryptionIndices: []int{1}},
			{ID: 2, MimeType: "video/mp4", VideoBitrate: 5000, EncryptionIndices: []int{0}},
			{ID: 3, MimeType: "video/mp4", VideoBitrate: 2000}, // ungrouped
			{ID: 4, MimeType: "audio/mp4", AudioBitrate: 128, EncryptionIndices: []int{1}},
		},
	}

	index := m.EncryptionIndex("widevine")
	if index != 1 {
		t.Fatalf("EncryptionIndex = %d, want 1", index)
	}

	video := m.ProfilesFor("video", index)
	if len(video) != 2 {
		t.Fatalf("got %d video profiles, want 2", len(video))
	}

	best, ok := BestProfile(video, "video/mp4")
	if !ok || best.ID != 3 {
		t.Errorf("best profile = %+v, want ID 3", best)
	}

	audio := m.ProfilesFor("audio", index)
	if len(audio) != 1 || audio[0].ID != 4 {
		t.Errorf("audio profiles = %+v", audio)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantID   string
		wantErr  bool
	}{
		{in: "https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh", wantType: "track", wantID: "4iV5W9uYEdYUVa79Axb7Rh"},
		{in: "spotify:episode:7makk4oTQel546B0PZlDM5", wantType: "episode", wantID: "7makk4oTQel546B0PZlDM5"},
		{in: "https://open.spotify.com/album/2up3OPMp9Tb4dAKM2erWXQ?si=abc", wantType: "album", wantID: "2up3OPMp9Tb4dAKM2erWXQ"},
		{in: "https://example.com/watch?v=nope", wantErr: true},
	}
	for _, tt := range tests {
		info, err := ParseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURL(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURL(%q): %v", tt.in, err)
			continue
		}
		if info.Type != tt.wantType || info.ID != tt.wantID {
			t.Errorf("ParseURL(%q) = %+v", tt.in, info)
		}
	}
}
