package model

// AudioQuality is one tier of the encoded audio ladder.
type AudioQuality string

const (
	QualityVorbisHigh   AudioQuality = "vorbis-high"
	QualityVorbisMedium AudioQuality = "vorbis-medium"
	QualityVorbisLow    AudioQuality = "vorbis-low"
	QualityAACHigh      AudioQuality = "aac-high"
	QualityAACMedium    AudioQuality = "aac-medium"
)

// formatIDs maps a quality tier to the service's encoded format identifier.
var formatIDs = map[AudioQuality]string{
	QualityVorbisHigh:   "OGG_VORBIS_320",
	QualityVorbisMedium: "OGG_VORBIS_160",
	QualityVorbisLow:    "OGG_VORBIS_96",
	QualityAACHigh:      "MP4_256",
	QualityAACMedium:    "MP4_128",
}

var (
	vorbisLadder = []AudioQuality{QualityVorbisHigh, QualityVorbisMedium, QualityVorbisLow}
	aacLadder    = []AudioQuality{QualityAACHigh, QualityAACMedium}
)

// FormatID returns the service format identifier for a quality tier.
func (q AudioQuality) FormatID() string {
	return formatIDs[q]
}

// IsAAC reports whether the tier belongs to the DRM-encrypted AAC ladder
// rather than the proprietary-scheme Vorbis ladder.
func (q AudioQuality) IsAAC() bool {
	return q == QualityAACHigh || q == QualityAACMedium
}

// FileExtension returns the container extension for files of this tier.
func (q AudioQuality) FileExtension() string {
	if q.IsAAC() {
		return ".m4a"
	}
	return ".ogg"
}

// Ladder returns the quality ladder the tier belongs to, ordered best-first.
func (q AudioQuality) Ladder() []AudioQuality {
	if q.IsAAC() {
		return aacLadder
	}
	return vorbisLadder
}

// AudioFile is one encoded audio rendition offered for a media item.
type AudioFile struct {
	FileID string
	Format string
}

// SelectAudioFile picks the best available file at or below the requested
// tier. It walks the requested tier's ladder downward and returns the first
// tier for which a matching file exists. Tiers above the request are never
// considered; if nothing matches at any tier, ok is false.
func SelectAudioFile(requested AudioQuality, files []AudioFile) (AudioQuality, AudioFile, bool) {
	ladder := requested.Ladder()
	start := 0
	for i, quality := range ladder {
		if quality == requested {
			start = i
			break
		}
	}
	for _, quality := range ladder[start:] {
		for _, file := range files {
			if file.Format == quality.FormatID() {
				return quality, file, true
			}
		}
	}
	return "", AudioFile{}, false
}
