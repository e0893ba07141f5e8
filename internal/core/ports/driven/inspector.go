package driven

import "context"

// ContentInfo describes a device-local file.
type ContentInfo struct {
	Name     string
	MimeType string
	Size     int64
}

// ContentInspector reads descriptive metadata for device files at staging time.
type ContentInspector interface {
	// Inspect returns name, MIME type and size for the content at uri.
	Inspect(ctx context.Context, uri string) (ContentInfo, error)
}
