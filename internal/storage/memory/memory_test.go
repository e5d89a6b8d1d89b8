// internal/storage/memory/memory_test.go
package memory

import (
	"testing"
)

func TestNew(t *testing.T) {
	b := New()
	if b == nil {
		t.Fatal("New returned nil")
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	records, err := b.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("expected empty load, got %v %v", records, err)
	}
}

func TestSaveLoad_Copies(t *testing.T) {
	b := New()
	in := []string{"a", "b"}
	if err := b.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	in[0] = "changed"

	out, _ := b.Load()
	if out[0] != "a" {
		t.Errorf("expected stored copy, got %q", out[0])
	}
	out[1] = "changed"
	again, _ := b.Load()
	if again[1] != "b" {
		t.Errorf("expected load to return a copy, got %q", again[1])
	}
	if b.Saves() != 1 {
		t.Errorf("expected 1 save, got %d", b.Saves())
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
