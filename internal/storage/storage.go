package storage

import (
	"context"
	"path"
	"strings"
)

// Archiver keeps a copy of an uploaded file in remote object storage.
type Archiver interface {
	Archive(ctx context.Context, localPath, key string) (string, error)
}

// ObjectKey joins a key prefix and path segments with single slashes.
func ObjectKey(prefix string, parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		segments = append(segments, p)
	}
	for _, part := range parts {
		if p := strings.Trim(part, "/"); p != "" {
			segments = append(segments, p)
		}
	}
	return path.Join(segments...)
}
