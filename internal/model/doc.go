// Package model defines the core data structures used throughout
// the spotify-downloader application.
//
// # Jobs
//
// Job tracks one queue item through the retrieval pipeline. Its State
// advances through the pipeline stages and ends in StateFinalized,
// StateSkipped or StateFailed:
//
//	job := model.NewJob("4iV5W9uYEdYUVa79Axb7Rh", model.MediaTrack)
//	job.Advance(model.StateManifestResolved)
//
// # Audio quality
//
// AudioQuality names one tier of the service's encoded audio ladder.
// Ladders are ordered best-first; selection walks downward from the
// requested tier and never upgrades past it:
//
//	quality, file, ok := model.SelectAudioFile(model.QualityVorbisHigh, files)
//
// # Video manifests
//
// VideoManifest is the validated form of the service's segmented video
// descriptor: a base URL, templated init/segment paths and a set of
// encoded profiles grouped by encryption descriptor. SegmentURLs expands
// the templates into one initialization URL followed by media URLs in
// ascending time order.
package model
