package stream

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"os"
)

// AES-CTR counter block halves used by every Vorbis stream. The first
// half is the nonce, the second the initial counter value.
var (
	vorbisNonce        = []byte{0x72, 0xE0, 0x67, 0xFB, 0xDD, 0xCB, 0xCF, 0x77}
	vorbisInitialValue = []byte{0xEB, 0xE8, 0xBC, 0x64, 0x3F, 0x63, 0x0D, 0x93}
)

var oggSignature = []byte("OggS")

// DecryptVorbis decrypts an encrypted Vorbis download into dst. The
// decrypted stream starts with junk ahead of the container signature;
// the junk is located by signature search and discarded. fixedSkip
// overrides the search with a fixed prefix length for old streams whose
// junk does not decrypt cleanly; zero means search.
func DecryptVorbis(key []byte, src, dst string, fixedSkip int) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("vorbis key: %w", err)
	}
	iv := make([]byte, 0, aes.BlockSize)
	iv = append(iv, vorbisNonce...)
	iv = append(iv, vorbisInitialValue...)
	cipher.NewCTR(block, iv).XORKeyStream(data, data)

	start := fixedSkip
	if start == 0 {
		start = bytes.Index(data, oggSignature)
		if start < 0 {
			return fmt.Errorf("decrypted stream carries no container signature")
		}
	}
	if start > len(data) {
		return fmt.Errorf("skip offset %d beyond stream size %d", start, len(data))
	}
	return os.WriteFile(dst, data[start:], 0o644)
}

// DecryptFFmpeg decrypts an MP4 download in one step with ffmpeg's
// decryption-key stream copy.
func DecryptFFmpeg(ctx context.Context, ffmpegPath, keyHex, src, dst string) error {
	return runTool(ctx, ffmpegPath,
		"-loglevel", "error",
		"-y",
		"-decryption_key", keyHex,
		"-i", src,
		"-c", "copy",
		dst,
	)
}

// DecryptMP4Decrypt decrypts an MP4 download with mp4decrypt. The output
// still needs a remux before it is playable everywhere.
func DecryptMP4Decrypt(ctx context.Context, mp4decryptPath, keyHex, src, dst string) error {
	return runTool(ctx, mp4decryptPath,
		"--key", "1:"+keyHex,
		src,
		dst,
	)
}

// DecryptPackager decrypts a WebM download with shaka packager's raw-key
// mode, which needs the key id alongside the key.
func DecryptPackager(ctx context.Context, packagerPath, keyIDHex, keyHex, src, dst string) error {
	return runTool(ctx, packagerPath,
		fmt.Sprintf("input=%s,stream=0,output=%s", src, dst),
		"--enable_raw_key_decryption",
		"--keys", fmt.Sprintf("key_id=%s:key=%s", keyIDHex, keyHex),
		"--quiet",
	)
}
