package download

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/drm"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/stream"
)

// defaultEpisodeKey decrypts episode streams whose key endpoint offers
// nothing; a fixed key is used service-wide for those.
var defaultEpisodeKey = []byte{
	0xDE, 0xAD, 0xBE, 0xEF, 0xDE, 0xAD, 0xBE, 0xEF,
	0xDE, 0xAD, 0xBE, 0xEF, 0xDE, 0xAD, 0xBE, 0xEF,
}

func (m *Manager) processAudio(ctx context.Context, job *model.Job, name string, files []model.AudioFile) error {
	requested := m.settings.ToAudioQuality()
	quality, file, ok := model.SelectAudioFile(requested, files)
	if !ok {
		return &UnavailableError{
			MediaID: job.MediaID,
			Reason:  fmt.Sprintf("no rendition at or below %s", requested),
		}
	}
	job.Advance(model.StateVariantSelected)
	if quality != requested {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s only offers %s, downgrading from %s", name, quality, requested), Level: LevelWarning})
	}

	var key []byte
	var err error
	if quality.IsAAC() {
		key, err = m.widevineAudioKey(ctx, file.FileID)
	} else {
		key, err = m.playplayKey(ctx, job, file.FileID)
	}
	if err != nil {
		return err
	}
	job.Advance(model.StateKeyAcquired)

	streamURL, err := m.client.AudioStreamURL(ctx, file.FileID)
	if err != nil {
		return err
	}
	encPath, err := m.tempPath(job.MediaID + ".encrypted" + quality.FileExtension())
	if err != nil {
		return err
	}
	job.AddTemp(encPath)
	if err := m.fetcher.DownloadFile(ctx, streamURL, encPath); err != nil {
		return err
	}
	job.Advance(model.StateFetched)

	var finishedPath string
	if quality.IsAAC() {
		finishedPath, err = m.decryptAAC(ctx, job, key, encPath)
	} else {
		finishedPath, err = m.decryptVorbis(job, key, encPath)
	}
	if err != nil {
		return err
	}
	return m.finalize(ctx, job, name, quality.FileExtension(), finishedPath)
}

func (m *Manager) widevineAudioKey(ctx context.Context, fileID string) ([]byte, error) {
	if m.cdm == nil {
		return nil, fmt.Errorf("AAC tiers need a CDM; configure device files or a remote CDM")
	}
	initData, err := m.client.SeekTableInitData(ctx, fileID)
	if err != nil {
		return nil, err
	}
	key, _, err := drm.FetchKey(ctx, m.cdm, initData, func(ctx context.Context, challenge []byte) ([]byte, error) {
		return m.client.WidevineLicense(ctx, "audio", challenge)
	})
	return key, err
}

func (m *Manager) playplayKey(ctx context.Context, job *model.Job, fileID string) ([]byte, error) {
	contentType := drm.ContentAudioTrack
	if job.MediaType == model.MediaEpisode {
		contentType = drm.ContentAudioEpisode
	}

	response, err := m.client.PlayPlayLicense(ctx, fileID, drm.BuildKeyRequest(contentType))
	if err != nil {
		if job.MediaType == model.MediaEpisode {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Key endpoint failed for episode %s, using the default key", job.MediaID), Level: LevelWarning})
			return defaultEpisodeKey, nil
		}
		return nil, err
	}
	obfuscated, err := drm.ParseKeyResponse(response)
	if err != nil {
		return nil, err
	}
	if m.unwrapper == nil {
		return nil, fmt.Errorf("vorbis tiers need a key unwrap helper; configure its path")
	}
	return m.unwrapper.Unwrap(ctx, fileID, obfuscated)
}

func (m *Manager) decryptVorbis(job *model.Job, key []byte, encPath string) (string, error) {
	decPath, err := m.tempPath(job.MediaID + ".decrypted.ogg")
	if err != nil {
		return "", err
	}
	job.AddTemp(decPath)
	if err := stream.DecryptVorbis(key, encPath, decPath, m.settings.LegacyVorbisSkip); err != nil {
		return "", err
	}
	job.Advance(model.StateDecrypted)
	// Vorbis streams come out playable, no remux needed.
	job.Advance(model.StateRemuxed)
	return decPath, nil
}

func (m *Manager) decryptAAC(ctx context.Context, job *model.Job, key []byte, encPath string) (string, error) {
	keyHex := hex.EncodeToString(key)

	if m.settings.RemuxMode == config.RemuxModeMP4Box {
		decPath, err := m.tempPath(job.MediaID + ".decrypted.m4a")
		if err != nil {
			return "", err
		}
		job.AddTemp(decPath)
		if err := stream.DecryptMP4Decrypt(ctx, m.settings.MP4DecryptPath, keyHex, encPath, decPath); err != nil {
			return "", err
		}
		job.Advance(model.StateDecrypted)

		remuxPath, err := m.tempPath(job.MediaID + ".remuxed.m4a")
		if err != nil {
			return "", err
		}
		job.AddTemp(remuxPath)
		if err := stream.RemuxMP4Box(ctx, m.settings.MP4BoxPath, remuxPath, decPath); err != nil {
			return "", err
		}
		job.Advance(model.StateRemuxed)
		return remuxPath, nil
	}

	// ffmpeg decrypts and rebuilds the container in one pass.
	fixedPath, err := m.tempPath(job.MediaID + ".fixed.m4a")
	if err != nil {
		return "", err
	}
	job.AddTemp(fixedPath)
	if err := stream.DecryptFFmpeg(ctx, m.settings.FFmpegPath, keyHex, encPath, fixedPath); err != nil {
		return "", err
	}
	job.Advance(model.StateDecrypted)
	job.Advance(model.StateRemuxed)
	return fixedPath, nil
}
