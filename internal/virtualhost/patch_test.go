package virtualhost

import (
	"encoding/json"
	"testing"
)

func TestPatchString(t *testing.T) {
	p := NewPatch("hello world")
	if err := p.Overwrite(6, 11, "there"); err != nil {
		t.Fatalf("Overwrite returned error: %v", err)
	}
	if err := p.Insert(11, "!"); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := p.Insert(0, ">> "); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if got, want := p.String(), ">> hello there!"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if !p.HasChanges() {
		t.Fatal("expected HasChanges to be true")
	}
}

func TestPatchRejectsOverlap(t *testing.T) {
	p := NewPatch("abcdef")
	if err := p.Overwrite(1, 4, "X"); err != nil {
		t.Fatalf("Overwrite returned error: %v", err)
	}
	if err := p.Overwrite(3, 5, "Y"); err == nil {
		t.Fatal("expected overlapping overwrite to fail")
	}
	if err := p.Insert(2, "Z"); err == nil {
		t.Fatal("expected insert inside a replaced range to fail")
	}
	if err := p.Insert(4, "W"); err != nil {
		t.Fatalf("insert at the end of a replaced range should succeed: %v", err)
	}
	if err := p.Insert(7, "V"); err == nil {
		t.Fatal("expected out of range insert to fail")
	}
}

func TestPatchIdentityOverwrite(t *testing.T) {
	p := NewPatch("abc")
	if err := p.Overwrite(0, 3, "abc"); err != nil {
		t.Fatalf("Overwrite returned error: %v", err)
	}
	if p.HasChanges() {
		t.Fatal("expected identical overwrite to report no changes")
	}
}

func TestPatchSourceMap(t *testing.T) {
	p := NewPatch("a\nb")
	if err := p.Insert(1, "X"); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	m := p.SourceMap("Comp.vue")
	if m.Mappings != "AAAA,EAAC;AACD" {
		t.Fatalf("unexpected mappings %q", m.Mappings)
	}

	data, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode map: %v", err)
	}
	if decoded["version"] != float64(3) {
		t.Fatalf("expected version 3, got %v", decoded["version"])
	}
	if decoded["mappings"] != "AAAA,EAAC;AACD" {
		t.Fatalf("unexpected encoded mappings %v", decoded["mappings"])
	}
}

func TestWriteVLQ(t *testing.T) {
	tests := map[int]string{0: "A", 1: "C", -1: "D", 15: "e", 16: "gB", -17: "jB"}
	for v, want := range tests {
		b := &mappingBuilder{}
		writeVLQ(&b.sb, v)
		if got := b.String(); got != want {
			t.Fatalf("writeVLQ(%d) = %q, want %q", v, got, want)
		}
	}
}
