package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/drm"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/stream"
)

const widevineKeySystem = "widevine"

func (m *Manager) processVideo(ctx context.Context, job *model.Job, name, videoGID string) error {
	manifest, err := m.client.VideoManifest(ctx, videoGID)
	if err != nil {
		return err
	}

	encIndex := manifest.EncryptionIndex(widevineKeySystem)
	videoProfiles := manifest.ProfilesFor("video", encIndex)
	audioProfiles := manifest.ProfilesFor("audio", encIndex)
	if len(videoProfiles) == 0 || len(audioProfiles) == 0 {
		return &UnavailableError{MediaID: job.MediaID, Reason: "manifest offers no usable profiles"}
	}

	// Both elementary streams come from one container family so the
	// remux never has to transcode.
	format := m.settings.VideoFormat
	if format == "" {
		format = config.VideoFormatMP4
	}
	videoProfile, ok := m.chooseProfile(videoProfiles, "video/"+format)
	if !ok {
		return &UnavailableError{MediaID: job.MediaID, Reason: fmt.Sprintf("no video/%s profile", format)}
	}
	audioProfile, ok := model.BestProfile(audioProfiles, "audio/"+format)
	if !ok {
		return &UnavailableError{MediaID: job.MediaID, Reason: fmt.Sprintf("no audio/%s profile", format)}
	}
	job.Advance(model.StateVariantSelected)

	var key, keyID []byte
	if encIndex >= 0 {
		if m.cdm == nil {
			return fmt.Errorf("protected videos need a CDM; configure device files or a remote CDM")
		}
		key, keyID, err = drm.FetchKey(ctx, m.cdm, manifest.Encryptions[encIndex].Data, func(ctx context.Context, challenge []byte) ([]byte, error) {
			return m.client.WidevineLicense(ctx, "video", challenge)
		})
		if err != nil {
			return err
		}
	}
	job.Advance(model.StateKeyAcquired)

	info := &model.StreamInfoVideo{
		SegmentURLsVideo: manifest.SegmentURLs(videoProfile),
		SegmentURLsAudio: manifest.SegmentURLs(audioProfile),
		FileTypeVideo:    videoProfile.FileType,
		FileTypeAudio:    audioProfile.FileType,
	}
	encVideo, err := m.downloadSegments(ctx, job, info.SegmentURLsVideo, job.MediaID+".video."+info.FileTypeVideo)
	if err != nil {
		return err
	}
	encAudio, err := m.downloadSegments(ctx, job, info.SegmentURLsAudio, job.MediaID+".audio."+info.FileTypeAudio)
	if err != nil {
		return err
	}
	job.Advance(model.StateFetched)

	decVideo, err := m.decryptVideoStream(ctx, job, key, keyID, encVideo, info.FileTypeVideo, "video")
	if err != nil {
		return err
	}
	decAudio, err := m.decryptVideoStream(ctx, job, key, keyID, encAudio, info.FileTypeAudio, "audio")
	if err != nil {
		return err
	}
	job.Advance(model.StateDecrypted)

	ext := info.FileExtension()
	outPath, err := m.tempPath(job.MediaID + ".remuxed" + ext)
	if err != nil {
		return err
	}
	job.AddTemp(outPath)
	if m.settings.RemuxMode == config.RemuxModeMP4Box && ext == ".mp4" {
		err = stream.RemuxMP4Box(ctx, m.settings.MP4BoxPath, outPath, decVideo, decAudio)
	} else {
		err = stream.RemuxFFmpeg(ctx, m.settings.FFmpegPath, decVideo, decAudio, outPath)
	}
	if err != nil {
		return err
	}
	job.Advance(model.StateRemuxed)

	return m.finalize(ctx, job, name, ext, outPath)
}

// chooseProfile picks the video rendition: the injected chooser when one
// is installed, otherwise the highest bitrate within the container
// family named by mimeType.
func (m *Manager) chooseProfile(profiles []model.VideoProfile, mimeType string) (model.VideoProfile, bool) {
	if m.chooser != nil {
		if profile, ok := m.chooser.ChooseProfile(profiles); ok {
			return profile, true
		}
	}
	return model.BestProfile(profiles, mimeType)
}

func (m *Manager) downloadSegments(ctx context.Context, job *model.Job, urls []string, tempName string) (string, error) {
	path, err := m.tempPath(tempName)
	if err != nil {
		return "", err
	}
	job.AddTemp(path)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := m.fetcher.DownloadSegments(ctx, urls, file); err != nil {
		file.Close()
		return "", err
	}
	return path, file.Close()
}

// decryptVideoStream decrypts one elementary stream. Unprotected streams
// pass through untouched.
func (m *Manager) decryptVideoStream(ctx context.Context, job *model.Job, key, keyID []byte, src, fileType, kind string) (string, error) {
	if key == nil {
		return src, nil
	}
	dst, err := m.tempPath(job.MediaID + ".decrypted." + kind + "." + fileType)
	if err != nil {
		return "", err
	}
	job.AddTemp(dst)

	keyHex := hex.EncodeToString(key)
	switch {
	case fileType == "webm":
		err = stream.DecryptPackager(ctx, m.settings.PackagerPath, hex.EncodeToString(keyID), keyHex, src, dst)
	case m.settings.RemuxMode == config.RemuxModeMP4Box:
		err = stream.DecryptMP4Decrypt(ctx, m.settings.MP4DecryptPath, keyHex, src, dst)
	default:
		err = stream.DecryptFFmpeg(ctx, m.settings.FFmpegPath, keyHex, src, dst)
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}
