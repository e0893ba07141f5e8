package driven

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// UploadItem is one entry of a batch upload, in submission order.
type UploadItem struct {
	// TempID correlates the item with its staged record.
	TempID string

	// Source decides whether the item travels as a file part or a descriptor.
	Source domain.FileSource

	// LocalURI is the device path for device items.
	LocalURI string

	// URL is the remote location for URL and webpage items.
	URL string

	// Name and MimeType describe device payloads.
	Name     string
	MimeType string
}

// UploadRequest is the batch sent to the indexing service.
type UploadRequest struct {
	// WorkspaceID is empty in single-file mode.
	WorkspaceID string

	// UserID identifies the uploading user.
	UserID string

	// Items are sent in the order given.
	Items []UploadItem
}

// UploadResponse mirrors the service's batch upload reply.
type UploadResponse struct {
	Success        bool                   `json:"success"`
	FilesProcessed int                    `json:"filesProcessed"`
	Files          []domain.CanonicalFile `json:"files"`
	Errors         UploadErrors           `json:"errors,omitempty"`
}

// UploadErrors holds the service's per-item error messages. Entries may
// arrive as strings or as objects; objects are reduced to their "message"
// or "error" field, or kept as compact JSON.
type UploadErrors []string

// UnmarshalJSON accepts an array of any JSON values, or a single value.
func (e *UploadErrors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}
	var items []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		items = []json.RawMessage{data}
	}

	out := make(UploadErrors, 0, len(items))
	for _, item := range items {
		if msg := errorText(item); msg != "" {
			out = append(out, msg)
		}
	}
	*e = out
	return nil
}

func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// QueryRequest asks a question over indexed content.
type QueryRequest struct {
	Question    string   `json:"question"`
	FileIDs     []string `json:"fileIds,omitempty"`
	WorkspaceID string   `json:"workspaceId,omitempty"`
	UserID      string   `json:"userId,omitempty"`
}

// QueryAnswer is the service's reply to a query.
type QueryAnswer struct {
	Answer  string            `json:"answer"`
	Sources []domain.Citation `json:"sources"`
}

// IndexingService is the remote indexing/chat service.
type IndexingService interface {
	// UploadBatch submits every item of a batch in one request.
	UploadBatch(ctx context.Context, req UploadRequest) (*UploadResponse, error)

	// DeleteFile removes one indexed file.
	DeleteFile(ctx context.Context, fileID string) error

	// DeleteWorkspace removes a workspace and, server-side, its files.
	DeleteWorkspace(ctx context.Context, workspaceID string) error

	// Query answers a natural-language question.
	Query(ctx context.Context, req QueryRequest) (*QueryAnswer, error)
}
