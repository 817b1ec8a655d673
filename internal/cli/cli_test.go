package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarwiz-ai/jarwiz/audiocapture"
	"github.com/jarwiz-ai/jarwiz/config"
	"github.com/jarwiz-ai/jarwiz/internal/app"
	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/ragclient"
)

func newDeps(t *testing.T, h http.HandlerFunc) *Dependencies {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	cfg.Cache.Enabled = false
	return &Dependencies{Config: cfg, Backend: ragclient.New(ragclient.Config{BaseURL: srv.URL})}
}

func execute(deps *Dependencies, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCmd(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskCmd(t *testing.T) {
	var got types.QueryRequest
	deps := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(types.QueryResult{
			Answer:    "Revenue grew 12%.",
			Citations: []types.Citation{{Type: types.CitationText, DocID: "d1", Page: 3, Snippet: "revenue grew"}},
		})
	})

	out, err := execute(deps, "ask", "--doc", "d1", "how", "did", "revenue", "change?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	if got.Query != "how did revenue change?" || got.DocID == nil || *got.DocID != "d1" || got.TopK != types.DefaultTopK {
		t.Errorf("request = %+v", got)
	}
	for _, want := range []string{"Revenue grew 12%.", "d1 p.3", "/documents/d1/page/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAskCmd_Empty(t *testing.T) {
	deps := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	if _, err := execute(deps, "ask", "  "); !errors.Is(err, app.ErrEmptyQuery) {
		t.Errorf("ask error = %v, want ErrEmptyQuery", err)
	}
}

func TestDocumentsCmd(t *testing.T) {
	deps := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]types.Document{{DocID: "d1", Filename: "report.pdf", ChunkCount: 7}})
	})

	out, err := execute(deps, "documents")
	if err != nil {
		t.Fatalf("documents error = %v", err)
	}
	if !strings.Contains(out, "d1  report.pdf (7 chunks)") {
		t.Errorf("output = %q", out)
	}
}

func TestUploadCmd_RejectsNonPDF(t *testing.T) {
	deps := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(deps, "upload", path); !errors.Is(err, app.ErrNotPDF) {
		t.Errorf("upload error = %v, want ErrNotPDF", err)
	}
}

func TestPageCmd(t *testing.T) {
	var query string
	deps := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})
	out := filepath.Join(t.TempDir(), "page.png")

	if _, err := execute(deps, "page", "d1", "-p", "2", "--bbox", "1,2,3,4", "-o", out); err != nil {
		t.Fatalf("page error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("page file = %q", data)
	}
	if query != "x0=1&x1=3&y0=2&y1=4" {
		t.Errorf("query = %q", query)
	}

	if _, err := execute(deps, "page", "d1", "--bbox", "1,2"); err == nil {
		t.Error("page with 2 bbox values: error = nil")
	}
	if _, err := execute(deps, "page", "d1", "-p", "0"); err == nil {
		t.Error("page 0: error = nil")
	}
}

func TestReaderAcquirer(t *testing.T) {
	a := newReaderAcquirer(bytes.NewReader(nil), 16000)

	if _, err := a.AcquireDisplay(context.Background()); !errors.Is(err, audiocapture.ErrNoMediaAvailable) {
		t.Errorf("AcquireDisplay() error = %v, want ErrNoMediaAvailable", err)
	}

	tr, err := a.AcquireMicrophone(context.Background(), audiocapture.DefaultConstraints())
	if err != nil {
		t.Fatalf("AcquireMicrophone() error = %v", err)
	}
	if _, err := a.AcquireMicrophone(context.Background(), audiocapture.DefaultConstraints()); err == nil {
		t.Error("second AcquireMicrophone() error = nil")
	}

	detach := tr.Attach(func([]float32) {})
	defer detach()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("empty input did not end the track")
	}
}
