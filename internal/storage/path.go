package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultExtension  = ".csv"
	maxExtensionBytes = 16
)

// BuildUploadName returns a collision-resistant file name for an upload: the
// millisecond timestamp, random bits and the original file's extension.
func BuildUploadName(now time.Time, originalName string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s%s", now.UTC().UnixMilli(), random[:16], SanitizeExtension(originalName))
}

// SanitizeExtension extracts the extension of originalName, keeping only
// letters, digits and dots. Names without a usable extension map to ".csv".
func SanitizeExtension(originalName string) string {
	ext := filepath.Ext(path.Base(strings.ReplaceAll(strings.TrimSpace(originalName), `\`, "/")))
	if ext == "" || ext == "." {
		return defaultExtension
	}

	var b strings.Builder
	for _, r := range ext {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "." || cleaned == "" || len(cleaned) > maxExtensionBytes {
		return defaultExtension
	}
	return strings.ToLower(cleaned)
}
