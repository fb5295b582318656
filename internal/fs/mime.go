package fs

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MimeType classifies a regular file. The extension is tried first; when it
// is missing or unregistered and sniff is set, the file's leading bytes are
// inspected. Parameters such as charset are dropped.
func MimeType(path string, sniff bool) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return baseType(t)
		}
	}
	if !sniff {
		return "application/octet-stream"
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return baseType(m.String())
}

func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
