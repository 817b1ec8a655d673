package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/transcript"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) Uploaded(res types.UploadResult) {
	fmt.Fprintf(f.w, "✅ Uploaded: %s\n", res.DocID)
	if res.Message != "" {
		fmt.Fprintf(f.w, "   %s\n", res.Message)
	}
}

func (f *Formatter) DocumentList(docs []types.Document) {
	if len(docs) == 0 {
		f.Info("No documents indexed")
		return
	}
	fmt.Fprintf(f.w, "📄 Documents:\n\n")
	for _, d := range docs {
		fmt.Fprintf(f.w, "  %s  %s (%d chunks)\n", d.DocID, d.Filename, d.ChunkCount)
	}
}

// Answer prints an answer followed by its citations. base is the backend
// URL used to render page links.
func (f *Formatter) Answer(res types.QueryResult, base string) {
	fmt.Fprintf(f.w, "🤖 %s\n", strings.TrimSpace(res.Answer))
	if len(res.Citations) == 0 {
		return
	}
	fmt.Fprintf(f.w, "\n📚 Sources:\n")
	for i, c := range res.Citations {
		fmt.Fprintf(f.w, "  [%d] %s\n", i+1, citationLine(c, base))
	}
}

func citationLine(c types.Citation, base string) string {
	switch {
	case c.Type == types.CitationWeb:
		title := c.Title
		if title == "" {
			title = c.URL
		}
		return fmt.Sprintf("%s <%s>", title, c.URL)
	case c.HasScreenshot():
		line := fmt.Sprintf("%s p.%d %s", c.DocID, c.Page, c.ScreenshotURL(base))
		if c.Snippet != "" {
			line += "\n      " + snippet(c.Snippet, 120)
		}
		return line
	default:
		return snippet(c.Snippet, 120)
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (f *Formatter) Status(label string) {
	fmt.Fprintf(f.w, "🎙️  %s\n", label)
}

func (f *Formatter) TranscriptLine(m types.TranscriptMessage) {
	fmt.Fprintln(f.w, transcript.FormatLine(m, time.Local))
}

func (f *Formatter) LatestSentence(s string) {
	fmt.Fprintf(f.w, "💬 %s\n", s)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}
