// Package ragclient talks to the JarWiz RAG backend: PDF upload, document
// listing, question answering and cited page images.
package ragclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

var (
	// ErrNetwork wraps transport failures and non-2xx responses.
	ErrNetwork = errors.New("ragclient: network error")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("ragclient: malformed response")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string { return e.Detail }

// Unwrap lets errors.Is match ErrNetwork.
func (e *APIError) Unwrap() error { return ErrNetwork }

// Config holds configuration for Client.
type Config struct {
	BaseURL string
	Timeout time.Duration // Default 120s; uploads of large PDFs are slow
}

// Client is a backend API client.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. An empty BaseURL means same-origin relative paths,
// which only works behind the desktop shell's asset proxy.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadPDF sends the file at path as multipart field "file".
func (c *Client) UploadPDF(ctx context.Context, path string) (types.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.UploadResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return c.Upload(ctx, filepath.Base(path), f)
}

// Upload sends r as a PDF named filename.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (types.UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return types.UploadResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return types.UploadResult{}, fmt.Errorf("write pdf data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return types.UploadResult{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_pdf", &buf)
	if err != nil {
		return types.UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result types.UploadResult
	if err := c.doJSON(req, "Upload failed", &result); err != nil {
		return types.UploadResult{}, err
	}
	return result, nil
}

// Query asks a question, optionally scoped to one document.
// A topK of zero uses types.DefaultTopK.
func (c *Client) Query(ctx context.Context, query string, docID string, topK int) (types.QueryResult, error) {
	if topK <= 0 {
		topK = types.DefaultTopK
	}
	body := types.QueryRequest{Query: query, TopK: topK}
	if docID != "" {
		body.DocID = &docID
	}

	data, err := json.Marshal(body)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(data))
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result types.QueryResult
	if err := c.doJSON(req, "Query failed", &result); err != nil {
		return types.QueryResult{}, err
	}
	return result, nil
}

// ListDocuments returns every indexed document.
func (c *Client) ListDocuments(ctx context.Context) ([]types.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var docs []types.Document
	if err := c.doJSON(req, "Failed to list documents", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// PageImageURL returns the image URL of a document page. The bbox is
// appended only when all four coordinates are present.
func (c *Client) PageImageURL(docID string, page int, bbox *types.BBox) string {
	return types.PageImageURL(c.baseURL, docID, page, bbox)
}

// PageImage fetches the rendered page image and its content type.
func (c *Client) PageImage(ctx context.Context, docID string, page int, bbox *types.BBox) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageImageURL(docID, page, bbox), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req, "Failed to load page image")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read page image: %v", ErrNetwork, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// do sends req and converts transport failures and non-2xx responses.
// fallback is used when the error body carries no detail.
func (c *Client) do(req *http.Request, fallback string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(resp, fallback)}
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, fallback string, out any) error {
	resp, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorDetail reads {"detail": "..."} from an error body, falling back to
// the status text and then to fallback.
func errorDetail(resp *http.Response, fallback string) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		if text := http.StatusText(resp.StatusCode); text != "" {
			return text
		}
		return fallback
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		if detail != "" {
			return detail
		}
		return fallback
	}
	// Validation errors carry a structured detail.
	if len(body.Detail) > 0 && string(body.Detail) != "null" {
		return string(body.Detail)
	}
	return fallback
}
