// Package fileid derives deterministic trail IDs from the file a trail was imported from.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
)

const prefix = "file-"

// TrailID returns a stable ID for the trail at position index in the file at absolutePath.
// Re-importing the same file yields the same IDs, so imports replace rather than duplicate.
func TrailID(absolutePath string, index int) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized + "#" + strconv.Itoa(index)))
	return prefix + hex.EncodeToString(hash[:12])
}
