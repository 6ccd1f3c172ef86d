package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// GenerateDocID creates a stable document ID from a format prefix, the
// file name and a content hash: "<prefix>.<name>.<hash12>".
func GenerateDocID(prefix, filename string, content []byte) string {
	base := filepath.Base(filename)
	name := sanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))
	return fmt.Sprintf("%s.%s.%s", prefix, name, ContentHash(content)[:12])
}

// sanitizeID lowercases s and keeps letters, digits and dashes. Spaces and
// underscores become dashes.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
