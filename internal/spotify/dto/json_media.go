package dto

import (
	"encoding/base64"
	"fmt"

	"github.com/handiism/spotify-downloader/internal/model"
)

// GIDFile is one encoded file listed in the low-level media metadata.
type GIDFile struct {
	FileID string `json:"file_id"`
	Format string `json:"format"`
	GID    string `json:"gid"`
}

// GIDAlternative is an alternate rendition set offered when the primary
// file list is unavailable in the caller's market.
type GIDAlternative struct {
	GID  string    `json:"gid"`
	File []GIDFile `json:"file"`
}

// GIDVideo references the video variant of a media item.
type GIDVideo struct {
	GID    string `json:"gid"`
	FileID string `json:"file_id"`
}

// GIDMetadata is the identifier-keyed low-level metadata for one media
// item. Tracks list encoded audio under File, episodes under Audio; both
// may fall back to the first Alternative's file list.
type GIDMetadata struct {
	Name          string           `json:"name"`
	File          []GIDFile        `json:"file"`
	Audio         []GIDFile        `json:"audio"`
	Video         []GIDVideo       `json:"video"`
	Alternative   []GIDAlternative `json:"alternative"`
	OriginalVideo []GIDVideo       `json:"original_video"`
	HasLyrics     bool             `json:"has_lyrics"`
}

// AudioFiles resolves the encoded audio file list for the given media
// type, applying the alternative-list fallback, and converts it into the
// validated model form. An empty slice means the item is unavailable.
func (m *GIDMetadata) AudioFiles(mediaType model.MediaType) []model.AudioFile {
	var files []GIDFile
	switch mediaType {
	case model.MediaEpisode:
		files = m.Audio
	default:
		files = m.File
	}
	if len(files) == 0 && len(m.Alternative) > 0 {
		files = m.Alternative[0].File
	}
	out := make([]model.AudioFile, 0, len(files))
	for _, f := range files {
		out = append(out, model.AudioFile{FileID: f.FileID, Format: f.Format})
	}
	return out
}

// VideoGID returns the GID of the item's video stream, if it has one.
func (m *GIDMetadata) VideoGID() string {
	if len(m.OriginalVideo) > 0 {
		return m.OriginalVideo[0].GID
	}
	if len(m.Video) > 0 {
		return m.Video[0].FileID
	}
	return ""
}

// SeekTable is the seek-table JSON resource for one encoded audio file.
// Besides seek offsets it carries the DRM init data for the AAC tier.
type SeekTable struct {
	PSSH string `json:"pssh"`
}

// PSSHData decodes the seek table's base64 init data.
func (s *SeekTable) PSSHData() ([]byte, error) {
	if s.PSSH == "" {
		return nil, fmt.Errorf("seek table carries no init data")
	}
	return base64.StdEncoding.DecodeString(s.PSSH)
}

// StorageResolve is the CDN URL-resolution response for one file.
type StorageResolve struct {
	Result string   `json:"result"`
	CDNURL []string `json:"cdnurl"`
}

// VideoEncryptionInfo is one encryption descriptor of a video manifest.
type VideoEncryptionInfo struct {
	KeySystem      string `json:"key_system"`
	EncryptionData string `json:"encryption_data"`
}

// VideoProfile is one encoded rendition of a video manifest.
type VideoProfile struct {
	ID                int    `json:"id"`
	MimeType          string `json:"mime_type"`
	FileType          string `json:"file_type"`
	VideoBitrate      int    `json:"video_bitrate"`
	AudioBitrate      int    `json:"audio_bitrate"`
	VideoCodec        string `json:"video_codec"`
	AudioCodec        string `json:"audio_codec"`
	VideoWidth        int    `json:"video_width"`
	VideoHeight       int    `json:"video_height"`
	EncryptionIndices []int  `json:"encryption_indices"`
}

// VideoContent is one content block of a video manifest.
type VideoContent struct {
	SegmentLength   int                   `json:"segment_length"`
	EncryptionInfos []VideoEncryptionInfo `json:"encryption_infos"`
	Profiles        []VideoProfile        `json:"profiles"`
}

// VideoManifest is the raw segmented video descriptor.
type VideoManifest struct {
	BaseURLs               []string       `json:"base_urls"`
	InitializationTemplate string         `json:"initialization_template"`
	SegmentTemplate        string         `json:"segment_template"`
	EndTimeMillis          int64          `json:"end_time_millis"`
	Contents               []VideoContent `json:"contents"`
}

// ToModel validates the raw manifest and converts it into the read-only
// internal form, decoding encryption init data from base64. Pipeline
// components only ever see the converted form.
func (m *VideoManifest) ToModel() (*model.VideoManifest, error) {
	if len(m.BaseURLs) == 0 {
		return nil, fmt.Errorf("video manifest has no base URLs")
	}
	if len(m.Contents) == 0 {
		return nil, fmt.Errorf("video manifest has no contents")
	}
	content := m.Contents[0]
	out := &model.VideoManifest{
		BaseURL:              m.BaseURLs[0],
		InitTemplate:         m.InitializationTemplate,
		SegmentTemplate:      m.SegmentTemplate,
		SegmentLengthSeconds: content.SegmentLength,
		EndTimeMillis:        m.EndTimeMillis,
	}
	if out.SegmentLengthSeconds <= 0 {
		return nil, fmt.Errorf("video manifest has invalid segment length %d", out.SegmentLengthSeconds)
	}
	for _, enc := range content.EncryptionInfos {
		data, err := base64.StdEncoding.DecodeString(enc.EncryptionData)
		if err != nil {
			return nil, fmt.Errorf("decoding %s encryption data: %w", enc.KeySystem, err)
		}
		out.Encryptions = append(out.Encryptions, model.EncryptionInfo{
			KeySystem: enc.KeySystem,
			Data:      data,
		})
	}
	for _, p := range content.Profiles {
		out.Profiles = append(out.Profiles, model.VideoProfile{
			ID:                p.ID,
			MimeType:          p.MimeType,
			FileType:          p.FileType,
			VideoCodec:        p.VideoCodec,
			AudioCodec:        p.AudioCodec,
			VideoBitrate:      p.VideoBitrate,
			AudioBitrate:      p.AudioBitrate,
			VideoWidth:        p.VideoWidth,
			VideoHeight:       p.VideoHeight,
			EncryptionIndices: p.EncryptionIndices,
		})
	}
	return out, nil
}
