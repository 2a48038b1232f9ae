package storage

import (
	"fmt"
	"mime"
	"strings"
)

// Policy limits what a bucket accepts.
type Policy struct {
	MaxSize      int64
	ContentTypes map[string]bool
}

// ImportPolicy accepts the CSV and JSON files of bulk lead imports. Browsers
// often label CSV files as Excel or plain text.
func ImportPolicy(maxSize int64) Policy {
	return Policy{
		MaxSize: maxSize,
		ContentTypes: map[string]bool{
			"text/csv":                 true,
			"application/csv":          true,
			"application/vnd.ms-excel": true,
			"text/plain":               true,
			"application/json":         true,
		},
	}
}

// Check validates an upload and returns its media type without parameters.
// Failures wrap ErrRejected.
func (p Policy) Check(contentType string, size int64) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if len(p.ContentTypes) > 0 && !p.ContentTypes[mediaType] {
		return "", fmt.Errorf("%w: content type %q is not allowed", ErrRejected, contentType)
	}
	if size <= 0 {
		return "", fmt.Errorf("%w: file is empty", ErrRejected)
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		return "", fmt.Errorf("%w: file size %d bytes exceeds the limit of %d bytes", ErrRejected, size, p.MaxSize)
	}
	return mediaType, nil
}
