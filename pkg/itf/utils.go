package itf

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

const (
	maxDBNameLength = 63
	// Reserve space for hash suffix when truncating (8 chars + underscore)
	hashSuffixLength = 9
)

// sanitizeDBName turns a test name into a short file-system safe database name
func sanitizeDBName(name string) string {
	sanitized := strings.ToLower(name)

	for _, ch := range []string{"/", " ", "-", ".", "(", ")", "[", "]", ":", "#"} {
		sanitized = strings.ReplaceAll(sanitized, ch, "_")
	}

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "test_db"
	}
	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}
	return truncateWithHash(sanitized, name)
}

// truncateWithHash keeps the head of the name and appends a hash of the original for uniqueness
func truncateWithHash(sanitized, original string) string {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(original)))[:8]
	return fmt.Sprintf("%s_%s", sanitized[:maxDBNameLength-hashSuffixLength], hash)
}
