// Package ioutils provides file system utilities.
//
// This package contains functions for:
//   - File copying and moving
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//
// # File Operations
//
//	// Copy a file
//	err := ioutils.CopyFile(ctx, "/src/file.ogg", "/dst/file.ogg")
//
//	// Move a file, surviving filesystem boundaries
//	err := ioutils.MoveFile(ctx, "/tmp/file.ogg", "/music/file.ogg")
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
package ioutils
