package transcript

import "testing"

func TestLatestSentence(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"trailing fragment", "Hello there. How are you", "Hello there.", true},
		{"last of many", "One. Two! Three?", "Three?", true},
		{"repeated terminators", "Wait... what?!", "what?!", true},
		{"no terminator", "just words", "just words", true},
		{"no terminator padded", "  just words  ", "just words", true},
		{"single sentence", "Done.", "Done.", true},
		{"whitespace only", "   ", "", false},
		{"empty", "", "", false},
		{"only terminators", "?!", "?!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LatestSentence(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("LatestSentence(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
