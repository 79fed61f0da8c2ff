package token

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet for ticket tokens and short codes (62 chars: 0-9, a-z, A-Z)
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	// TicketTokenLength is the length of the opaque guest access token.
	TicketTokenLength = 32
	// ShortCodeLength is the length of the human-readable ticket code.
	ShortCodeLength = 6
)

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}

// NewTicketToken returns a fresh opaque token for guest ticket access.
func NewTicketToken() (string, error) {
	return GenerateSecureSlug(TicketTokenLength)
}

// NewShortCode returns an uppercase short code printed on the ticket stub.
func NewShortCode() (string, error) {
	code, err := GenerateSecureSlug(ShortCodeLength)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}
