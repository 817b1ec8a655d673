package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jarwiz-ai/jarwiz/internal/types"
)

var (
	ErrNotPDF         = errors.New("only PDF files are accepted")
	ErrNoFile         = errors.New("no file selected")
	ErrUploadInFlight = errors.New("an upload is already in flight")
)

// DocumentStore is the backend side of the upload panel.
// *ragclient.Client implements it.
type DocumentStore interface {
	UploadPDF(ctx context.Context, path string) (types.UploadResult, error)
	ListDocuments(ctx context.Context) ([]types.Document, error)
}

// Documents owns the upload panel: the pending file, the document list and
// the selected document.
type Documents struct {
	store DocumentStore
	emit  Emitter

	mu          sync.Mutex
	docs        []types.Document
	selected    string
	pending     string
	uploading   bool
	loadingDocs bool
	lastError   string
}

// NewDocuments creates the upload panel state.
func NewDocuments(store DocumentStore, emit Emitter) *Documents {
	return &Documents{store: store, emit: emit}
}

// Drop accepts a dropped file as the pending upload. Files that are not
// PDFs are rejected before any network call and the rejection becomes the
// visible error.
func (d *Documents) Drop(path string) error {
	if err := CheckPDF(path); err != nil {
		d.update(func() { d.lastError = err.Error() })
		return err
	}
	d.update(func() {
		d.pending = path
		d.lastError = ""
	})
	return nil
}

// Upload sends path, or the pending file when path is empty. The file is
// checked with CheckPDF before any network call. On success the list is
// refreshed and the new document selected.
func (d *Documents) Upload(ctx context.Context, path string) (types.UploadResult, error) {
	d.mu.Lock()
	if path == "" {
		path = d.pending
	}
	if path == "" {
		d.mu.Unlock()
		return types.UploadResult{}, ErrNoFile
	}
	d.mu.Unlock()

	if err := CheckPDF(path); err != nil {
		d.update(func() { d.lastError = err.Error() })
		return types.UploadResult{}, err
	}

	d.mu.Lock()
	if d.uploading {
		d.mu.Unlock()
		return types.UploadResult{}, ErrUploadInFlight
	}
	d.uploading = true
	d.lastError = ""
	state := d.stateLocked()
	d.mu.Unlock()
	d.emit.emit(EventDocumentsState, state)

	res, err := d.store.UploadPDF(ctx, path)
	if err != nil {
		slog.Warn("upload failed", "file", filepath.Base(path), "error", err)
		d.update(func() {
			d.uploading = false
			d.lastError = err.Error()
		})
		return types.UploadResult{}, err
	}
	slog.Info("document uploaded", "doc_id", res.DocID, "file", filepath.Base(path))

	if err := d.Refresh(ctx); err != nil {
		slog.Warn("refresh after upload", "doc_id", res.DocID, "error", err)
	}
	d.update(func() {
		d.uploading = false
		d.pending = ""
		d.selected = res.DocID
	})
	return res, nil
}

// Refresh replaces the document list. A failure keeps the old list and is
// recorded as the visible error.
func (d *Documents) Refresh(ctx context.Context) error {
	d.update(func() { d.loadingDocs = true })

	docs, err := d.store.ListDocuments(ctx)
	d.update(func() {
		d.loadingDocs = false
		if err != nil {
			d.lastError = err.Error()
			return
		}
		d.docs = docs
	})
	if err != nil {
		slog.Warn("list documents failed", "error", err)
	}
	return err
}

// Select scopes queries to docID. "" searches all documents.
func (d *Documents) Select(docID string) {
	d.update(func() { d.selected = docID })
}

// Selected returns the selected document id.
func (d *Documents) Selected() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// State returns a snapshot of the upload panel.
func (d *Documents) State() types.DocumentsState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

func (d *Documents) update(fn func()) {
	d.mu.Lock()
	fn()
	state := d.stateLocked()
	d.mu.Unlock()
	d.emit.emit(EventDocumentsState, state)
}

func (d *Documents) stateLocked() types.DocumentsState {
	docs := make([]types.Document, len(d.docs))
	copy(docs, d.docs)
	return types.DocumentsState{
		Documents:     docs,
		SelectedDocID: d.selected,
		PendingFile:   d.pending,
		Uploading:     d.uploading,
		LoadingDocs:   d.loadingDocs,
		LastError:     d.lastError,
	}
}

var pdfMagic = []byte("%PDF-")

// CheckPDF reports ErrNotPDF unless path has a .pdf extension and PDF content.
func CheckPDF(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read file: %w", err)
	}
	head = head[:n]

	if bytes.HasPrefix(head, pdfMagic) || http.DetectContentType(head) == "application/pdf" {
		return nil
	}
	return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotPDF)
}
