package token

import (
	"strings"
	"testing"
)

func TestGenerateSecureSlug_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := GenerateSecureSlug(0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
}

func TestGenerateSecureSlug_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	slug, err := GenerateSecureSlug(TicketTokenLength)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slug) != TicketTokenLength {
		t.Fatalf("expected slug length %d, got %d", TicketTokenLength, len(slug))
	}

	for i := 0; i < len(slug); i++ {
		if strings.IndexByte(alphabet, slug[i]) == -1 {
			t.Fatalf("slug contains invalid character %q", slug[i])
		}
	}
}

func TestNewShortCode(t *testing.T) {
	t.Parallel()

	code, err := NewShortCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != ShortCodeLength {
		t.Fatalf("expected code length %d, got %d", ShortCodeLength, len(code))
	}
	if code != strings.ToUpper(code) {
		t.Fatalf("expected uppercase short code, got %q", code)
	}
}

func TestNewTicketToken_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		tok, err := NewTicketToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
