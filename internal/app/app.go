// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jarwiz-ai/jarwiz/cache"
	"github.com/jarwiz-ai/jarwiz/clipboard"
	"github.com/jarwiz-ai/jarwiz/config"
	"github.com/jarwiz-ai/jarwiz/hotkey"
	"github.com/jarwiz-ai/jarwiz/internal/setup"
	"github.com/jarwiz-ai/jarwiz/internal/types"
	"github.com/jarwiz-ai/jarwiz/ragclient"
	"github.com/jarwiz-ai/jarwiz/transcript"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// ErrNoCitationImage is returned for citations without a page to show.
var ErrNoCitationImage = errors.New("citation has no page image")

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; business logic lives in sub-components.
type Service struct {
	cfg    *config.Config
	cache  *cache.Cache
	hotkey *hotkey.Manager

	// UI references - set via Init
	app    *application.App
	window application.Window

	backend *ragclient.Client
	pages   ragclient.PageFetcher
	board   clipboard.Board

	// Components with proper synchronization
	docs    *Documents
	chat    *Chat
	meeting MeetingAdapter

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window
	if app != nil {
		s.board = app.Clipboard
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}
	s.cfg = cfg

	s.backend = setup.Backend(cfg)
	s.pages, s.cache = setup.Pages(cfg, s.backend)

	s.docs = NewDocuments(s.backend, s.emit)
	s.chat = NewChat(s.backend, s.docs.Selected, s.emit)

	s.setupMeeting()
	s.setupHotkey()

	go func() {
		if err := s.docs.Refresh(context.Background()); err != nil {
			slog.Warn("initial document list", "error", err)
		}
	}()
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	s.meeting.Stop()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

func (s *Service) setupMeeting() {
	acq, err := setup.Acquirer(s.cfg)
	if err != nil {
		slog.Error("init audio capture", "error", err)
		return
	}
	if err := acq.CheckFFmpeg(); err != nil {
		slog.Warn("ffmpeg not found, meeting capture will fail", "error", err)
	}

	session, err := setup.Session(s.cfg, acq)
	if err != nil {
		slog.Error("init transcription", "error", err)
		return
	}
	s.meeting.Start(session, s.emit)
}

func (s *Service) setupHotkey() {
	if !s.cfg.Hotkeys.Enabled {
		return
	}
	s.hotkey = hotkey.NewManager(
		hotkey.Binding{
			Name: "ask-latest",
			Keys: s.cfg.Hotkeys.AskLatest,
			Action: func() {
				if _, err := s.AskLatest(); err != nil {
					slog.Warn("ask latest from hotkey", "error", err)
				}
			},
		},
		hotkey.Binding{
			Name: "toggle-mic",
			Keys: s.cfg.Hotkeys.ToggleMic,
			Action: func() {
				if err := s.ToggleMicrophone(); err != nil {
					slog.Warn("toggle microphone from hotkey", "error", err)
				}
			},
		},
	)

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Meeting Transcription
// ─────────────────────────────────────────────────────────────────────────────

// ConnectToMeeting asks for meeting audio and then starts the microphone.
func (s *Service) ConnectToMeeting() error {
	session, err := s.meeting.Session()
	if err != nil {
		return err
	}
	return session.ConnectToMeeting(context.Background())
}

// ConnectMicrophone starts transcribing the microphone mixed with meeting audio.
func (s *Service) ConnectMicrophone() error {
	session, err := s.meeting.Session()
	if err != nil {
		return err
	}
	return session.ConnectMicrophone(context.Background())
}

// DisconnectMicrophone stops transcription and keeps the meeting audio.
func (s *Service) DisconnectMicrophone() {
	if session, err := s.meeting.Session(); err == nil {
		session.DisconnectMicrophone()
	}
}

// DisconnectAll stops transcription and releases the meeting audio.
func (s *Service) DisconnectAll() {
	if session, err := s.meeting.Session(); err == nil {
		session.DisconnectAll()
	}
}

// ToggleMicrophone flips the microphone between on and off.
func (s *Service) ToggleMicrophone() error {
	return s.meeting.ToggleMicrophone(context.Background())
}

// GetMeetingState returns the meeting view state.
func (s *Service) GetMeetingState() types.SessionState {
	return s.meeting.State()
}

// GetTranscript returns the transcript messages in arrival order.
func (s *Service) GetTranscript() []types.TranscriptMessage {
	return s.meeting.Messages()
}

// CopyTranscript copies the transcript as text to the clipboard.
func (s *Service) CopyTranscript() error {
	return clipboard.SetText(s.board, transcript.Format(s.meeting.Messages(), time.Local))
}

// ToggleFullscreen switches the meeting view in and out of fullscreen.
func (s *Service) ToggleFullscreen() bool {
	on := !s.meeting.State().Fullscreen
	if s.window != nil {
		if on {
			s.window.Fullscreen()
		} else {
			s.window.UnFullscreen()
		}
	}
	if session, err := s.meeting.Session(); err == nil {
		session.SetFullscreen(on)
	}
	return on
}

// ─────────────────────────────────────────────────────────────────────────────
// Chat
// ─────────────────────────────────────────────────────────────────────────────

// SendMessage asks the backend a typed question.
func (s *Service) SendMessage(text string) (types.ChatMessage, error) {
	return s.chat.Submit(context.Background(), text)
}

// AskLatest asks the backend the latest transcribed sentence.
func (s *Service) AskLatest() (types.ChatMessage, error) {
	return s.chat.AskLatest(context.Background(), s.meeting.LatestSentence())
}

// AskFromClipboard asks the backend the text on the clipboard.
func (s *Service) AskFromClipboard() (types.ChatMessage, error) {
	text, err := clipboard.GetText(s.board)
	if err != nil {
		return types.ChatMessage{}, fmt.Errorf("read clipboard: %w", err)
	}
	return s.chat.Submit(context.Background(), text)
}

// GetChatState returns the chat panel state.
func (s *Service) GetChatState() types.ChatState {
	return s.chat.State()
}

// CopyMessage copies a chat message to the clipboard.
func (s *Service) CopyMessage(id string) error {
	for _, m := range s.chat.State().Messages {
		if m.ID == id {
			return clipboard.SetText(s.board, m.Content)
		}
	}
	return fmt.Errorf("message %q not found", id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Citations
// ─────────────────────────────────────────────────────────────────────────────

// GetCitations returns the citations of the last answer.
func (s *Service) GetCitations() []types.Citation {
	return s.chat.Citations()
}

// CitationURL returns the page image URL of c, or "" for web citations.
func (s *Service) CitationURL(c types.Citation) string {
	return c.ScreenshotURL(s.cfg.BackendURL)
}

// GetCitationImage fetches the page screenshot of c as a data URL.
func (s *Service) GetCitationImage(c types.Citation) (PageImage, error) {
	if !c.HasScreenshot() {
		return PageImage{}, ErrNoCitationImage
	}
	data, contentType, err := s.pages.PageImage(context.Background(), c.DocID, c.Page, c.BBox)
	if err != nil {
		return PageImage{}, fmt.Errorf("fetch page %d of %s: %w", c.Page, c.DocID, err)
	}
	if contentType == "" {
		contentType = "image/png"
	}
	return PageImage{
		DataURL:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Documents
// ─────────────────────────────────────────────────────────────────────────────

// DropFile accepts a dropped PDF as the pending upload.
func (s *Service) DropFile(path string) error {
	return s.docs.Drop(path)
}

// DropFiles takes files dropped on the window. Only the first is kept as the
// pending upload.
func (s *Service) DropFiles(paths []string) error {
	if len(paths) == 0 {
		return ErrNoFile
	}
	if len(paths) > 1 {
		slog.Info("several files dropped, keeping the first", "count", len(paths))
	}
	return s.docs.Drop(paths[0])
}

// UploadPDF uploads path, or the pending file when path is empty.
func (s *Service) UploadPDF(path string) (types.UploadResult, error) {
	return s.docs.Upload(context.Background(), path)
}

// RefreshDocuments reloads the document list.
func (s *Service) RefreshDocuments() error {
	return s.docs.Refresh(context.Background())
}

// SelectDocument scopes queries to docID; "" searches all documents.
func (s *Service) SelectDocument(docID string) {
	s.docs.Select(docID)
}

// GetDocumentsState returns the upload panel state.
func (s *Service) GetDocumentsState() types.DocumentsState {
	return s.docs.State()
}

// ShowWindow brings the main window to the front.
func (s *Service) ShowWindow() {
	if s.window != nil {
		s.window.Show()
		s.window.Focus()
	}
}
