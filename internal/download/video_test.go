package download

import (
	"testing"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/model"
)

func TestChooseProfileStaysInContainerFamily(t *testing.T) {
	profiles := []model.VideoProfile{
		{ID: 1, MimeType: "video/webm", FileType: "webm", VideoBitrate: 9000},
		{ID: 2, MimeType: "video/mp4", FileType: "mp4", VideoBitrate: 4000},
		{ID: 3, MimeType: "video/mp4", FileType: "mp4", VideoBitrate: 2000},
	}
	m := &Manager{settings: config.DefaultSettings()}

	// The webm profile has the highest bitrate overall but lives in the
	// wrong container family; selection stays within the requested one.
	profile, ok := m.chooseProfile(profiles, "video/mp4")
	if !ok {
		t.Fatal("chooseProfile found no video/mp4 profile")
	}
	if profile.ID != 2 {
		t.Errorf("chose profile %d (%s, %d bps), want 2", profile.ID, profile.MimeType, profile.Bitrate())
	}

	if _, ok := m.chooseProfile(profiles, "video/ogg"); ok {
		t.Error("chooseProfile invented a profile for an unoffered container")
	}
}

func TestChooseProfileHonorsChooser(t *testing.T) {
	profiles := []model.VideoProfile{
		{ID: 1, MimeType: "video/mp4", VideoBitrate: 4000},
		{ID: 2, MimeType: "video/mp4", VideoBitrate: 2000},
	}
	m := &Manager{settings: config.DefaultSettings()}
	m.SetChooser(chooserFunc(func(offered []model.VideoProfile) (model.VideoProfile, bool) {
		return offered[1], true
	}))

	profile, ok := m.chooseProfile(profiles, "video/mp4")
	if !ok || profile.ID != 2 {
		t.Errorf("chose profile %+v, want the chooser's pick (ID 2)", profile)
	}
}

type chooserFunc func(profiles []model.VideoProfile) (model.VideoProfile, bool)

func (f chooserFunc) ChooseProfile(profiles []model.VideoProfile) (model.VideoProfile, bool) {
	return f(profiles)
}
