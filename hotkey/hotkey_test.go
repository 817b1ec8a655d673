package hotkey

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	noop := func() {}

	tests := []struct {
		name     string
		bindings []Binding
		wantErr  string
	}{
		{"Valid", []Binding{{Name: "ask", Keys: []string{"a", "ctrl", "shift"}, Action: noop}}, ""},
		{"NoKeys", []Binding{{Name: "ask", Action: noop}}, "no keys"},
		{"NoAction", []Binding{{Name: "mic", Keys: []string{"m"}}}, "no action"},
		{"Empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bindings)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestManager_StartInvalid(t *testing.T) {
	m := NewManager(Binding{Name: "broken"})
	if err := m.Start(); err == nil {
		t.Fatal("Start with invalid binding: want error")
	}
	// Nothing was hooked, so Stop is a no-op.
	m.Stop()
}
