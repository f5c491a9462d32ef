package model

import (
	"fmt"
	"regexp"
)

// MediaType identifies what kind of item a job retrieves.
type MediaType string

const (
	MediaTrack   MediaType = "track"
	MediaEpisode MediaType = "episode"
)

// JobState is one stage of the per-item pipeline.
type JobState string

const (
	StateQueued           JobState = "queued"
	StateManifestResolved JobState = "manifest_resolved"
	StateVariantSelected  JobState = "variant_selected"
	StateSkipped          JobState = "skipped"
	StateKeyAcquired      JobState = "key_acquired"
	StateFetched          JobState = "fetched"
	StateDecrypted        JobState = "decrypted"
	StateRemuxed          JobState = "remuxed"
	StateFinalized        JobState = "finalized"
	StateFailed           JobState = "failed"
)

// Job is one queue item moving through the pipeline.
//
// TempPaths collects every temporary artifact the pipeline creates for
// this item; all of them are purged after the job ends, whatever state
// it ended in.
type Job struct {
	// MediaID is the compact external identifier (22 characters).
	MediaID string

	// MediaType selects the audio pipeline variant (track or episode).
	MediaType MediaType

	// State is the current pipeline stage.
	State JobState

	// TempPaths lists temporary files created for this job.
	TempPaths []string

	// FinalPath is where the finished container was moved, once finalized.
	FinalPath string
}

// NewJob creates a queued job for one media item.
func NewJob(mediaID string, mediaType MediaType) *Job {
	return &Job{
		MediaID:   mediaID,
		MediaType: mediaType,
		State:     StateQueued,
	}
}

// Advance moves the job to the given stage.
func (j *Job) Advance(state JobState) {
	j.State = state
}

// AddTemp registers a temporary artifact for end-of-job cleanup.
func (j *Job) AddTemp(path string) string {
	j.TempPaths = append(j.TempPaths, path)
	return path
}

// URLInfo is the outcome of parsing a service URL or URI.
type URLInfo struct {
	Type string
	ID   string
}

var urlRe = regexp.MustCompile(`(album|playlist|track|show|episode|artist)[/:](\w{22})`)

// ParseURL extracts the media type and compact identifier from an open.spotify.com
// URL or a spotify: URI.
func ParseURL(rawURL string) (URLInfo, error) {
	match := urlRe.FindStringSubmatch(rawURL)
	if match == nil {
		return URLInfo{}, fmt.Errorf("unrecognized media URL: %q", rawURL)
	}
	return URLInfo{Type: match[1], ID: match[2]}, nil
}
