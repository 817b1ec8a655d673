package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("http://api", "doc-1", "3")

	if _, ok := c.Get(key); ok {
		t.Fatal("Get() hit on empty cache")
	}

	want := &Entry{Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}
	if err := c.Set(key, want, DefaultTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() missed after Set")
	}
	if !bytes.Equal(got.Data, want.Data) || got.ContentType != want.ContentType {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit after Delete")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("expiring")

	if err := c.Set(key, &Entry{Data: []byte("x")}, 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.Get(key); !ok {
		t.Fatal("Get() missed before expiry")
	}

	time.Sleep(3100 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit after expiry")
	}
}

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		same bool
	}{
		{"Identical", []string{"a", "b"}, []string{"a", "b"}, true},
		{"Different", []string{"a", "b"}, []string{"a", "c"}, false},
		{"NoConcatCollision", []string{"ab", "c"}, []string{"a", "bc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateKey(tt.a...) == GenerateKey(tt.b...); got != tt.same {
				t.Errorf("keys equal = %v, want %v", got, tt.same)
			}
		})
	}
}
