// Package token generates the unguessable values the sharing flow hands out:
// opaque share link tokens and fixed-width numeric OTP codes. Both draw from
// crypto/rand; share ids themselves are UUIDs and need no secrecy.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// shareTokenBytes gives 256 bits of entropy, 43 chars base64url.
const shareTokenBytes = 32

// NewShareToken returns an opaque URL-safe token for embedding in share
// links and QR codes.
func NewShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewOtpCode returns a zero-padded numeric code of the given width.
// Width is clamped to [4, 10] so codes stay typeable and within int64 range.
func NewOtpCode(width int) (string, error) {
	if width < 4 {
		width = 4
	}
	if width > 10 {
		width = 10
	}
	max := big.NewInt(1)
	for i := 0; i < width; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%0*d", width, n), nil
}
