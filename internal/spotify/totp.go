package spotify

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strconv"
)

const (
	totpPeriodSeconds = 30
	totpDigits        = 6
)

// Authenticator derives fixed-width one-time codes from a versioned
// shared secret and a server-supplied timestamp. The local clock is
// never used, so clock skew cannot break code generation.
type Authenticator struct {
	// Version is the secret version the codes are derived from.
	Version int

	secret []byte
}

// NewAuthenticator derives the HMAC key material from an obfuscated
// registry secret.
func NewAuthenticator(secret Secret) *Authenticator {
	return &Authenticator{
		Version: secret.Version,
		secret:  deriveSecret(secret.Data),
	}
}

// deriveSecret undoes the registry obfuscation: each element is XORed
// with ((index mod 33) + 9) and the results are concatenated as decimal
// digit strings. The concatenated text itself is the HMAC key material;
// it is deliberately not reinterpreted as raw bytes, matching what the
// service's own client does on the wire.
func deriveSecret(data []int) []byte {
	var key []byte
	for i, value := range data {
		transformed := value ^ ((i % 33) + 9)
		key = strconv.AppendInt(key, int64(transformed), 10)
	}
	return key
}

// Generate produces the one-time code for a server timestamp in
// milliseconds. The counter advances every period, so timestamps of
// period*1000-1 and period*1000 yield different codes.
func (a *Authenticator) Generate(serverTimeMs int64) string {
	counter := uint64(serverTimeMs) / 1000 / totpPeriodSeconds

	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(sha1.New, a.secret)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	// Standard OTP dynamic truncation.
	offset := sum[len(sum)-1] & 0x0F
	code := (uint32(sum[offset])&0x7F)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	modulus := uint32(1)
	for i := 0; i < totpDigits; i++ {
		modulus *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, code%modulus)
}
