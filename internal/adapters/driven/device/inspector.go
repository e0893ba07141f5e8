package device

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

const octetStream = "application/octet-stream"

// Ensure Inspector implements the interface.
var _ driven.ContentInspector = (*Inspector)(nil)

// Inspector reads metadata of device files.
type Inspector struct{}

// NewInspector creates an inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect returns the name, MIME type and size of the file at uri.
func (i *Inspector) Inspect(ctx context.Context, uri string) (driven.ContentInfo, error) {
	if err := ctx.Err(); err != nil {
		return driven.ContentInfo{}, err
	}
	path := LocalPath(uri)

	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return driven.ContentInfo{}, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return driven.ContentInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return driven.ContentInfo{}, fmt.Errorf("%s is a directory: %w", path, domain.ErrInvalidInput)
	}

	return driven.ContentInfo{
		Name:     filepath.Base(path),
		MimeType: detectMIME(path),
		Size:     st.Size(),
	}, nil
}

// detectMIME sniffs content first and falls back to the extension.
func detectMIME(path string) string {
	if mt, err := mimetype.DetectFile(path); err == nil && !mt.Is(octetStream) {
		return baseType(mt.String())
	}
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return baseType(byExt)
	}
	return octetStream
}

// baseType drops MIME parameters such as charset.
func baseType(t string) string {
	base, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(base)
}
