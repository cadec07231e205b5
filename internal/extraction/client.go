// Package extraction turns referral documents into plain text. Text and
// markdown files are read locally; PDFs are inspected and then sent to the
// extraction service.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

type response struct {
	Success bool `json:"success"`
	Data    *struct {
		Filename    string `json:"filename"`
		TextContent string `json:"text_content"`
		PageCount   int    `json:"page_count"`
	} `json:"data"`
	Error string `json:"error"`
}

// Client satisfies workflow.Extractor.
type Client struct {
	baseURL string
	maxSize int64
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, maxSize int64, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("system", "extraction"),
	}
}

// Extract returns the text of the document at path.
func (c *Client) Extract(ctx context.Context, path string) (string, error) {
	doc, err := Load(path, c.maxSize)
	if err != nil {
		return "", err
	}

	var text string
	if doc.Text() {
		text = string(doc.Data)
	} else {
		text, err = c.remote(ctx, doc)
		if err != nil {
			return "", err
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.WarnContext(ctx, "document has no text", "filename", doc.Filename)
	}

	pages := 0
	if doc.PageCount != nil {
		pages = *doc.PageCount
	}

	c.logger.InfoContext(
		ctx, "document extracted",
		"filename", doc.Filename,
		"content_type", doc.ContentType,
		"pages", pages,
		"text_length", len(text),
	)

	return text, nil
}

func (c *Client) remote(ctx context.Context, doc *Document) (string, error) {
	body, contentType, err := multipartBody(doc)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrService, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrService, err)
	}
	if !r.Success {
		msg := r.Error
		if msg == "" {
			msg = "unsuccessful response"
		}
		return "", fmt.Errorf("%w: %s", ErrService, msg)
	}
	if r.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrEmptyText, doc.Filename)
	}

	return r.Data.TextContent, nil
}

func multipartBody(doc *Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
	h.Set("Content-Type", doc.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
