// Package stream turns downloaded payloads into playable files.
//
// Vorbis audio is decrypted in-process with AES-CTR. Everything else
// shells out to the configured external tools: ffmpeg or mp4decrypt for
// MP4 decryption, shaka packager for WebM, and ffmpeg or MP4Box for the
// final remux. Tool failures surface as *ToolError with the captured
// stderr.
package stream
