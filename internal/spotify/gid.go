package spotify

import (
	"fmt"
	"math/big"
	"strings"
)

// The compact identifier alphabet, digits first, lowercase before
// uppercase. This is the inverted variant of the usual base62 alphabet
// and must match the service exactly for the mapping to hold.
const gidCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	mediaIDLength = 22
	gidLength     = 32
)

var gidBase = big.NewInt(int64(len(gidCharset)))

// MediaIDToGID converts a compact 22-character media identifier into the
// internal 32-character hexadecimal GID.
func MediaIDToGID(mediaID string) (string, error) {
	value := new(big.Int)
	for _, r := range mediaID {
		index := strings.IndexRune(gidCharset, r)
		if index < 0 {
			return "", fmt.Errorf("invalid media id %q: bad character %q", mediaID, r)
		}
		value.Mul(value, gidBase)
		value.Add(value, big.NewInt(int64(index)))
	}
	return fmt.Sprintf("%0*x", gidLength, value), nil
}

// GIDToMediaID converts an internal hexadecimal GID back into the compact
// 22-character media identifier. The conversion is the exact inverse of
// MediaIDToGID.
func GIDToMediaID(gid string) (string, error) {
	value, ok := new(big.Int).SetString(gid, 16)
	if !ok {
		return "", fmt.Errorf("invalid gid %q", gid)
	}
	var out []byte
	mod := new(big.Int)
	for value.Sign() > 0 {
		value.DivMod(value, gidBase, mod)
		out = append(out, gidCharset[mod.Int64()])
	}
	for len(out) < mediaIDLength {
		out = append(out, '0')
	}
	// Digits were produced least-significant first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}
