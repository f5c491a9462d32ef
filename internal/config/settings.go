package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/handiism/spotify-downloader/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Paths
	OutputPath  string `json:"output_path"`
	TempPath    string `json:"temp_path"`
	ArchivePath string `json:"archive_path"`

	// Account
	SPDC       string `json:"sp_dc"`
	SecretsURL string `json:"secrets_url"`

	// Quality and processing
	AudioQuality     string  `json:"audio_quality"` // vorbis-high, vorbis-medium, vorbis-low, aac-high, aac-medium
	VideoFormat      string  `json:"video_format"`  // mp4, webm
	DownloadMode     string  `json:"download_mode"` // client, accelerator
	RemuxMode        string  `json:"remux_mode"`    // ffmpeg, mp4box
	SegmentWorkers   int     `json:"segment_workers"`
	QueueDelay       float64 `json:"queue_delay"`
	LegacyVorbisSkip int     `json:"legacy_vorbis_skip"`

	// External tools
	FFmpegPath      string `json:"ffmpeg_path"`
	MP4BoxPath      string `json:"mp4box_path"`
	MP4DecryptPath  string `json:"mp4decrypt_path"`
	PackagerPath    string `json:"packager_path"`
	AcceleratorPath string `json:"accelerator_path"`
	UnwrapperPath   string `json:"unwrapper_path"`

	// Key acquisition
	ClientIDPath    string `json:"client_id_path"`
	PrivateKeyPath  string `json:"private_key_path"`
	RemoteCDMURL    string `json:"remote_cdm_url"`
	RemoteCDMDevice string `json:"remote_cdm_device"`
	RemoteCDMSecret string `json:"remote_cdm_secret"`
}

// Download mode values.
const (
	DownloadModeClient      = "client"
	DownloadModeAccelerator = "accelerator"
)

// Remux mode values.
const (
	RemuxModeFFmpeg = "ffmpeg"
	RemuxModeMP4Box = "mp4box"
)

// Video container values.
const (
	VideoFormatMP4  = "mp4"
	VideoFormatWebM = "webm"
)

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		OutputPath: filepath.Join(homeDir, "Music", "Spotify"),
		TempPath:   filepath.Join(os.TempDir(), "spotify-dl"),

		AudioQuality:   string(model.QualityVorbisHigh),
		VideoFormat:    VideoFormatMP4,
		DownloadMode:   DownloadModeClient,
		RemuxMode:      RemuxModeFFmpeg,
		SegmentWorkers: 4,
		QueueDelay:     1.0,

		FFmpegPath:     "ffmpeg",
		MP4BoxPath:     "MP4Box",
		MP4DecryptPath: "mp4decrypt",
		PackagerPath:   "packager",
		UnwrapperPath:  "unplayplay",
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ToAudioQuality converts the configured quality string to the typed
// tier, falling back to the best Vorbis tier for unknown values.
func (s *Settings) ToAudioQuality() model.AudioQuality {
	switch model.AudioQuality(s.AudioQuality) {
	case model.QualityVorbisHigh, model.QualityVorbisMedium, model.QualityVorbisLow,
		model.QualityAACHigh, model.QualityAACMedium:
		return model.AudioQuality(s.AudioQuality)
	default:
		return model.QualityVorbisHigh
	}
}
