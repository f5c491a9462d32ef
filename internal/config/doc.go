// Package config provides configuration management for spotify-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Conversion of the configured quality to the typed tier
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/Music/Spotify
//	// Best Vorbis quality
//	// External tools resolved from PATH
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.OutputPath = "/custom/path"
//	err := settings.Save("/path/to/config.json")
//
// # Configuration Options
//
// Settings includes options for:
//   - Output, temp, and archive paths
//   - Account cookie and secret registry URL
//   - Audio quality tier and download/remux backends
//   - External tool paths
//   - Local or remote key-acquisition setup
package config
