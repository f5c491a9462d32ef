package stream

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// encryptVorbis builds an encrypted fixture with the scheme's counter
// block. CTR is symmetric, so encrypting is one more decrypt.
func encryptVorbis(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("building cipher: %v", err)
	}
	iv := append(append([]byte{}, vorbisNonce...), vorbisInitialValue...)
	out := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(out, plaintext)
	return out
}

func TestDecryptVorbisSignatureSearch(t *testing.T) {
	key := []byte("0123456789abcdef")
	payload := append([]byte("OggS"), []byte("vorbis stream body")...)
	plaintext := append([]byte("junkjunk"), payload...)

	dir := t.TempDir()
	src := filepath.Join(dir, "encrypted.bin")
	dst := filepath.Join(dir, "decrypted.ogg")
	if err := os.WriteFile(src, encryptVorbis(t, key, plaintext), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := DecryptVorbis(key, src, dst, 0); err != nil {
		t.Fatalf("DecryptVorbis: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decrypted stream = %q, want %q", got, payload)
	}
}

func TestDecryptVorbisFixedSkip(t *testing.T) {
	key := []byte("0123456789abcdef")
	payload := append([]byte("OggS"), []byte("body")...)
	plaintext := append([]byte("12345678"), payload...)

	dir := t.TempDir()
	src := filepath.Join(dir, "encrypted.bin")
	dst := filepath.Join(dir, "decrypted.ogg")
	if err := os.WriteFile(src, encryptVorbis(t, key, plaintext), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := DecryptVorbis(key, src, dst, 8); err != nil {
		t.Fatalf("DecryptVorbis: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decrypted stream = %q, want %q", got, payload)
	}
}

func TestDecryptVorbisMissingSignature(t *testing.T) {
	key := []byte("0123456789abcdef")

	dir := t.TempDir()
	src := filepath.Join(dir, "encrypted.bin")
	if err := os.WriteFile(src, encryptVorbis(t, key, []byte("no signature here")), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	err := DecryptVorbis(key, src, filepath.Join(dir, "out.ogg"), 0)
	if err == nil {
		t.Fatal("DecryptVorbis accepted a stream without a container signature")
	}
}

func TestRunToolFailure(t *testing.T) {
	err := runTool(context.Background(), "/nonexistent/binary")
	if err == nil {
		t.Fatal("runTool succeeded with a nonexistent binary")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("runTool error = %T, want *ToolError", err)
	}
	if toolErr.Tool != "binary" {
		t.Errorf("ToolError.Tool = %q, want %q", toolErr.Tool, "binary")
	}
}
