package extraction

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/referrals/pkg/formatting"
)

// Document is a source referral loaded from disk.
type Document struct {
	Path        string
	Filename    string
	ContentType string
	Data        []byte
	// PageCount is set for PDFs only.
	PageCount *int
}

// Text reports whether the document is read locally instead of being sent
// to the extraction service.
func (d *Document) Text() bool {
	return strings.HasPrefix(d.ContentType, "text/")
}

// Load reads path, enforces maxSize when positive, and inspects PDFs with
// pdfcpu so that corrupt files fail before any network call.
func Load(path string, maxSize int64) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupported, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf(
			"%w: %s is %s, limit %s",
			ErrTooLarge, filepath.Base(path),
			formatting.FormatBytes(info.Size(), 1),
			formatting.FormatBytes(maxSize, 1),
		)
	}

	contentType, err := contentTypeFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := &Document{
		Path:        path,
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}

	if contentType == "application/pdf" {
		if sniffed := http.DetectContentType(data); sniffed != "application/pdf" {
			return nil, fmt.Errorf("%w: content sniffed as %s", ErrUnreadablePDF, sniffed)
		}
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
		}
		doc.PageCount = &count
	}

	return doc, nil
}

func contentTypeFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".txt":
		return "text/plain", nil
	case ".md", ".markdown":
		return "text/markdown", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}
