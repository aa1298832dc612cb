package objectstore

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxFilenameLen = 128

// ObjectKey creates a unique object key for the file:
// <prefix>/<tenant>/<uuid>/<sanitized filename>
func ObjectKey(prefix, tenantID, filename, contentType string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.ToLower(prefix), tenantID, uuid.New().String(), SanitizeFilename(filename, contentType))
}

// SanitizeFilename keeps a safe basename of filename. When nothing usable
// remains it falls back to "file" plus an extension derived from contentType.
func SanitizeFilename(filename, contentType string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	name := strings.TrimLeft(b.String(), ".")
	if len(name) > maxFilenameLen {
		name = name[len(name)-maxFilenameLen:]
	}
	if name == "" {
		name = "file" + extensionFor(contentType)
	}
	return name
}

func extensionFor(contentType string) string {
	extensions, err := mime.ExtensionsByType(contentType)
	if err == nil && len(extensions) > 0 {
		return extensions[0]
	}

	switch contentType {
	case "video/mp4":
		return ".mp4"
	case "video/mpeg":
		return ".mpeg"
	case "audio/mpeg":
		return ".mp3"
	case "application/pdf":
		return ".pdf"
	default:
		return ""
	}
}
