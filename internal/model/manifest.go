package model

import (
	"strconv"
	"strings"
)

// segmentSafetyMarginSeconds extends template expansion slightly past the
// declared end time so the last partial segment is never dropped.
const segmentSafetyMarginSeconds = 5

// EncryptionInfo is one encryption descriptor advertised by a manifest.
type EncryptionInfo struct {
	// KeySystem names the DRM scheme, e.g. "widevine".
	KeySystem string

	// Data is the decoded protection-system-specific init data (PSSH).
	Data []byte
}

// VideoProfile is one concrete encoded rendition offered by a manifest.
type VideoProfile struct {
	ID           int
	MimeType     string
	FileType     string
	VideoCodec   string
	AudioCodec   string
	VideoBitrate int
	AudioBitrate int
	VideoWidth   int
	VideoHeight  int

	// EncryptionIndices lists the encryption descriptors this profile is
	// grouped under. A nil slice means the profile is ungrouped and
	// matches any descriptor.
	EncryptionIndices []int
}

// Bitrate returns the bitrate relevant to the profile's track type.
func (p VideoProfile) Bitrate() int {
	if strings.HasPrefix(p.MimeType, "video") {
		return p.VideoBitrate
	}
	return p.AudioBitrate
}

func (p VideoProfile) matchesEncryptionIndex(index int) bool {
	if p.EncryptionIndices == nil {
		return true
	}
	for _, i := range p.EncryptionIndices {
		if i == index {
			return true
		}
	}
	return false
}

// VideoManifest is the validated form of a segmented video descriptor.
// It is read-only after construction.
type VideoManifest struct {
	BaseURL              string
	InitTemplate         string
	SegmentTemplate      string
	SegmentLengthSeconds int
	EndTimeMillis        int64
	Encryptions          []EncryptionInfo
	Profiles             []VideoProfile
}

// EncryptionIndex returns the index of the first encryption descriptor for
// the named key system, or -1 if the manifest has none.
func (m *VideoManifest) EncryptionIndex(keySystem string) int {
	for i, enc := range m.Encryptions {
		if enc.KeySystem == keySystem {
			return i
		}
	}
	return -1
}

// ProfilesFor returns the profiles whose mime type starts with trackType
// ("video" or "audio") and whose encryption grouping matches the active
// descriptor index. Profiles without an encryption grouping match any index.
func (m *VideoManifest) ProfilesFor(trackType string, encryptionIndex int) []VideoProfile {
	var out []VideoProfile
	for _, p := range m.Profiles {
		if !strings.HasPrefix(p.MimeType, trackType) {
			continue
		}
		if encryptionIndex >= 0 && !p.matchesEncryptionIndex(encryptionIndex) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// BestProfile returns the highest-bitrate profile with exactly the given
// mime type, or ok false when none match.
func BestProfile(profiles []VideoProfile, mimeType string) (VideoProfile, bool) {
	var best VideoProfile
	found := false
	for _, p := range profiles {
		if p.MimeType != mimeType {
			continue
		}
		if !found || p.Bitrate() > best.Bitrate() {
			best = p
			found = true
		}
	}
	return best, found
}

func (m *VideoManifest) expand(template string, profile VideoProfile, timestamp int) string {
	s := strings.ReplaceAll(template, "{{profile_id}}", strconv.Itoa(profile.ID))
	s = strings.ReplaceAll(s, "{{segment_timestamp}}", strconv.Itoa(timestamp))
	s = strings.ReplaceAll(s, "{{file_type}}", profile.FileType)
	return m.BaseURL + s
}

// SegmentURLs expands the manifest templates for one profile: the
// initialization URL first, then media segment URLs in ascending time
// order covering [0, end+margin) stepped by the segment length.
func (m *VideoManifest) SegmentURLs(profile VideoProfile) []string {
	urls := []string{m.expand(m.InitTemplate, profile, 0)}
	end := int(m.EndTimeMillis/1000) + segmentSafetyMarginSeconds
	for t := 0; t < end; t += m.SegmentLengthSeconds {
		urls = append(urls, m.expand(m.SegmentTemplate, profile, t))
	}
	return urls
}

// StreamInfoVideo describes the chosen video and audio renditions for a job.
type StreamInfoVideo struct {
	SegmentURLsVideo []string
	SegmentURLsAudio []string
	FileTypeVideo    string
	FileTypeAudio    string
}

// FileExtension returns the output container extension: the shared file
// type when video and audio agree, otherwise mp4.
func (s *StreamInfoVideo) FileExtension() string {
	if s.FileTypeVideo == s.FileTypeAudio {
		return "." + s.FileTypeVideo
	}
	return ".mp4"
}
