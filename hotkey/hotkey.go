// Package hotkey registers global keyboard shortcuts.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrRunning is returned by Start when the manager is already listening.
var ErrRunning = errors.New("hotkey: already running")

// Binding maps a key combination to an action. Keys use gohook names, for
// example {"a", "ctrl", "shift"}.
type Binding struct {
	Name   string
	Keys   []string
	Action func()
}

// Manager owns the global keyboard hook.
type Manager struct {
	mu       sync.Mutex
	bindings []Binding
	running  bool
	done     chan struct{}
}

// NewManager creates a manager for bindings. Nothing is hooked until Start.
func NewManager(bindings ...Binding) *Manager {
	return &Manager{bindings: bindings}
}

// Validate checks that every binding has a key and an action.
func Validate(bindings []Binding) error {
	for _, b := range bindings {
		if len(b.Keys) == 0 {
			return fmt.Errorf("hotkey %q: no keys", b.Name)
		}
		if b.Action == nil {
			return fmt.Errorf("hotkey %q: no action", b.Name)
		}
	}
	return nil
}

// Start installs the hook and dispatches key presses in the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrRunning
	}
	if err := Validate(m.bindings); err != nil {
		return err
	}

	for _, b := range m.bindings {
		action := b.Action
		name := b.Name
		hook.Register(hook.KeyDown, b.Keys, func(hook.Event) {
			slog.Debug("hotkey pressed", "name", name)
			// Actions may block on network calls.
			go action()
		})
		slog.Info("hotkey registered", "name", name, "keys", strings.Join(b.Keys, "+"))
	}

	events := hook.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-hook.Process(events)
	}()

	m.running = true
	m.done = done
	return nil
}

// Stop removes the hook. Safe to call when not running.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}
