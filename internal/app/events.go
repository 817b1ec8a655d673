// Package app provides the core application service for Wails bindings.
package app

// Event names for frontend communication.
const (
	EventMeetingState      = "meeting-state"
	EventTranscriptMessage = "transcript-message"
	EventLatestSentence    = "latest-sentence"
	EventChatState         = "chat-state"
	EventDocumentsState    = "documents-state"
	EventCitations         = "citations"
)

// Emitter publishes a named event to the frontend.
type Emitter func(name string, data any)

func (e Emitter) emit(name string, data any) {
	if e != nil {
		e(name, data)
	}
}

// PageImage is a page screenshot encoded for an <img> source.
type PageImage struct {
	DataURL     string `json:"dataUrl"`
	ContentType string `json:"contentType"`
}
