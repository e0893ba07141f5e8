package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// TempIDPrefix marks client-generated identifiers that have not yet been
// promoted to a canonical, server-issued id.
const TempIDPrefix = "temp_"

// FileSource identifies where an attachment came from.
type FileSource string

// Available file sources.
const (
	// FileSourceDevice is a file read from local storage.
	FileSourceDevice FileSource = "device"

	// FileSourceURL is a remote document fetched by the indexing service.
	FileSourceURL FileSource = "fromUrl"

	// FileSourceWebpage is a web page scraped by the indexing service.
	FileSourceWebpage FileSource = "webpage"
)

// IsValid returns true if the source is recognised.
func (s FileSource) IsValid() bool {
	switch s {
	case FileSourceDevice, FileSourceURL, FileSourceWebpage:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the content lives at a URL rather than on the device.
func (s FileSource) IsRemote() bool {
	return s == FileSourceURL || s == FileSourceWebpage
}

// String returns the string representation.
func (s FileSource) String() string {
	return string(s)
}

// FileRecord is the local metadata for one attachment.
// Exactly one of LocalURI and OriginalURL is populated, determined by Source.
type FileRecord struct {
	// ID is temporary (temp_<rand>) until promoted, then canonical.
	ID string `json:"id"`

	// Source is where the attachment came from.
	Source FileSource `json:"source"`

	// LocalURI is the device-local content handle. Device only.
	LocalURI string `json:"localUri,omitempty"`

	// OriginalURL is the remote location. URL and webpage only.
	OriginalURL string `json:"originalUrl,omitempty"`

	// OriginalName is the display name.
	OriginalName string `json:"originalName"`

	// MimeType is the detected or server-reported content type.
	MimeType string `json:"mimeType"`

	// UploadDate is when the record was staged.
	UploadDate time.Time `json:"uploadDate"`

	// Size is the content size in bytes, 0 when unknown.
	Size int64 `json:"size"`

	// IsIndexed is false until the remote service confirms ingestion.
	IsIndexed bool `json:"isIndexed"`

	// WorkspaceID is empty in single-file mode.
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// RecordID returns the key the record is stored under.
func (f FileRecord) RecordID() string {
	return f.ID
}

// WithID returns a copy of the record carrying id.
func (f FileRecord) WithID(id string) FileRecord {
	f.ID = id
	return f
}

// IsTemporary reports whether the record still carries a staging id.
func (f FileRecord) IsTemporary() bool {
	return IsTempID(f.ID)
}

// HasConsistentOrigin checks the LocalURI/OriginalURL exclusivity invariant.
func (f FileRecord) HasConsistentOrigin() bool {
	switch {
	case f.Source == FileSourceDevice:
		return f.LocalURI != "" && f.OriginalURL == ""
	case f.Source.IsRemote():
		return f.OriginalURL != "" && f.LocalURI == ""
	default:
		return false
	}
}

// IsTempID reports whether id was generated at staging time.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// AttachmentIntent is a request from the UI to attach one item.
type AttachmentIntent struct {
	// Source selects how Location is interpreted.
	Source FileSource

	// Location is a local path for device files, a URL otherwise.
	Location string

	// DisplayName overrides the derived name when set.
	DisplayName string
}

// CanonicalFile is the server's descriptor for an ingested item.
type CanonicalFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	UploadDate   time.Time `json:"uploadDate"`
}

// UnmarshalJSON decodes a descriptor, reading uploadDate with ParseTimestamp.
func (f *CanonicalFile) UnmarshalJSON(data []byte) error {
	type plain CanonicalFile
	var aux struct {
		plain
		UploadDate json.RawMessage `json:"uploadDate"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = CanonicalFile(aux.plain)
	f.UploadDate = ParseTimestamp(aux.UploadDate)
	return nil
}

// StagedFile pairs a temporary id with the record written for it.
type StagedFile struct {
	TempID string
	Record FileRecord
}
