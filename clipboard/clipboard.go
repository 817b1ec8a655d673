// Package clipboard reads and writes plain text on the system clipboard
// through the desktop runtime.
package clipboard

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned when the platform clipboard refuses the call.
var ErrUnavailable = errors.New("clipboard unavailable")

// Board is the platform clipboard. The Wails clipboard manager implements it.
type Board interface {
	SetText(text string) bool
	Text() (string, bool)
}

var clipboardLock sync.Mutex

// SetText replaces the clipboard contents with text.
func SetText(b Board, text string) error {
	if b == nil {
		return ErrUnavailable
	}
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	if !b.SetText(text) {
		return ErrUnavailable
	}
	return nil
}

// GetText returns the clipboard contents.
func GetText(b Board) (string, error) {
	if b == nil {
		return "", ErrUnavailable
	}
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	text, ok := b.Text()
	if !ok {
		return "", ErrUnavailable
	}
	return text, nil
}
