package pushsync

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeApplicationKey converts the URL-safe, unpadded base64 public key the
// server hands out into the raw bytes the platform expects when opening a
// subscription. The platform rejects anything that is not byte-exact, so a
// bad key fails here rather than producing a corrupt subscription.
func DecodeApplicationKey(s string) ([]byte, error) {
	padded := s + strings.Repeat("=", (4-len(s)%4)%4)
	padded = strings.ReplaceAll(padded, "-", "+")
	padded = strings.ReplaceAll(padded, "_", "/")

	raw, err := base64.StdEncoding.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("invalid application key: %w", err)
	}
	return raw, nil
}

// EncodeApplicationKey is the inverse of DecodeApplicationKey.
func EncodeApplicationKey(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
