// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Transcription Types
// ─────────────────────────────────────────────────────────────────────────────

// MessageKind classifies a transcript message.
type MessageKind string

const (
	MessageFinal   MessageKind = "final"
	MessagePartial MessageKind = "partial"
	MessageSystem  MessageKind = "system"
)

// TranscriptMessage is one entry of the live transcript log.
// Immutable once created.
type TranscriptMessage struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Kind       MessageKind `json:"kind"`
	SpeakerTag *int        `json:"speakerTag,omitempty"` // nil for system messages and undiarized finals
	Timestamp  int64       `json:"timestamp"`            // Unix timestamp in milliseconds
}

// SessionState is the view-facing state of the meeting transcription session.
type SessionState struct {
	ConnectedToMeeting bool   `json:"connectedToMeeting"`
	MicConnected       bool   `json:"micConnected"`
	Fullscreen         bool   `json:"fullscreen"`
	PreviewActive      bool   `json:"previewActive"`
	CurrentPartialText string `json:"currentPartialText"`
	LatestSentence     string `json:"latestSentence"`
	StatusLabel        string `json:"statusLabel"`
	LastError          string `json:"lastError,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Backend Types
// ─────────────────────────────────────────────────────────────────────────────

// CitationType is the kind of artifact a citation points at.
type CitationType string

const (
	CitationText  CitationType = "text"
	CitationImage CitationType = "image"
	CitationWeb   CitationType = "web"
)

// BBox is a page rectangle in backend page coordinates.
// Any coordinate may be missing in backend responses.
type BBox struct {
	X0 *float64 `json:"x0"`
	Y0 *float64 `json:"y0"`
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
}

// Complete reports whether all four coordinates are present.
func (b *BBox) Complete() bool {
	return b != nil && b.X0 != nil && b.Y0 != nil && b.X1 != nil && b.Y1 != nil
}

// Citation is an artifact backing part of an answer. Never mutated client side.
type Citation struct {
	Type    CitationType `json:"type"`
	DocID   string       `json:"doc_id,omitempty"`
	Page    int          `json:"page,omitempty"`
	BBox    *BBox        `json:"bbox,omitempty"`
	Snippet string       `json:"snippet,omitempty"`
	URL     string       `json:"url,omitempty"`
	Title   string       `json:"title,omitempty"`
}

// HasScreenshot reports whether the citation can be shown as a page image.
func (c Citation) HasScreenshot() bool {
	return (c.Type == CitationText || c.Type == CitationImage) && c.DocID != "" && c.Page > 0
}

// ScreenshotURL returns the backend page image URL for the citation, or ""
// when the citation has no page to show. The highlight rectangle is added
// only when all four coordinates are known.
func (c Citation) ScreenshotURL(base string) string {
	if !c.HasScreenshot() {
		return ""
	}
	return PageImageURL(base, c.DocID, c.Page, c.BBox)
}

// PageImageURL builds GET {base}/documents/{docID}/page/{page}[?x0&y0&x1&y1].
func PageImageURL(base, docID string, page int, bbox *BBox) string {
	u := fmt.Sprintf("%s/documents/%s/page/%d",
		strings.TrimRight(base, "/"), url.PathEscape(docID), page)
	if !bbox.Complete() {
		return u
	}
	q := url.Values{}
	q.Set("x0", formatCoord(*bbox.X0))
	q.Set("y0", formatCoord(*bbox.Y0))
	q.Set("x1", formatCoord(*bbox.X1))
	q.Set("y1", formatCoord(*bbox.Y1))
	return u + "?" + q.Encode()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Document is an indexed PDF known to the backend.
type Document struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// UploadResult is the backend response to a PDF upload.
type UploadResult struct {
	Success bool   `json:"success"`
	DocID   string `json:"doc_id"`
	Message string `json:"message"`
}

// QueryRequest is the body of a backend query.
type QueryRequest struct {
	Query string  `json:"query"`
	DocID *string `json:"doc_id"`
	TopK  int     `json:"top_k"`
}

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// QueryResult is the backend answer to a query.
type QueryResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Chat Types
// ─────────────────────────────────────────────────────────────────────────────

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the chat log. Append-only.
type ChatMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Source    string     `json:"source,omitempty"` // "voice" when asked from the transcript
	Citations []Citation `json:"citations,omitempty"`
	Error     bool       `json:"error,omitempty"`
}

// ChatState is the view-facing state of the chat panel.
type ChatState struct {
	Messages      []ChatMessage `json:"messages"`
	Loading       bool          `json:"loading"`
	LastError     string        `json:"lastError,omitempty"`
	SelectedDocID string        `json:"selectedDocId,omitempty"`
}

// DocumentsState is the view-facing state of the upload panel.
type DocumentsState struct {
	Documents     []Document `json:"documents"`
	SelectedDocID string     `json:"selectedDocId,omitempty"`
	PendingFile   string     `json:"pendingFile,omitempty"`
	Uploading     bool       `json:"uploading"`
	LoadingDocs   bool       `json:"loadingDocs"`
	LastError     string     `json:"lastError,omitempty"`
}
