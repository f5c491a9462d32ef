package stream

import "context"

// RemuxFFmpeg stream-copies a video and an audio input into one
// container.
func RemuxFFmpeg(ctx context.Context, ffmpegPath, videoSrc, audioSrc, dst string) error {
	return runTool(ctx, ffmpegPath,
		"-loglevel", "error",
		"-y",
		"-i", videoSrc,
		"-i", audioSrc,
		"-c", "copy",
		"-map", "0:v:0",
		"-map", "1:a:0",
		dst,
	)
}

// RemuxMP4Box merges the inputs into a fresh container with MP4Box. The
// placeholder tag forces MP4Box to allocate an item list the finalizer
// can overwrite in place.
func RemuxMP4Box(ctx context.Context, mp4boxPath, dst string, srcs ...string) error {
	args := []string{
		"-quiet",
		"-itags", "artist=placeholder",
		"-keep-utc",
	}
	for _, src := range srcs {
		args = append(args, "-add", src)
	}
	args = append(args, "-new", dst)
	return runTool(ctx, mp4boxPath, args...)
}
