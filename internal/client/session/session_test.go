package session

import (
	"path/filepath"
	"testing"
)

func TestSaveResumeRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "chat_session.json"))

	if _, ok := s.Resume(); ok {
		t.Fatalf("fresh store must have nothing to resume")
	}
	if err := s.Save(42); err != nil {
		t.Fatalf("save: %v", err)
	}
	key, ok := s.Resume()
	if !ok || key != 42 {
		t.Fatalf("expected key 42, got %d (%v)", key, ok)
	}
}

func TestSavedZeroKeyIsResumable(t *testing.T) {
	// the generic staff key is 0, which must still read back as a saved
	// session rather than as the absence of one
	s := NewStore(filepath.Join(t.TempDir(), "chat_session.json"))
	if err := s.Save(0); err != nil {
		t.Fatalf("save: %v", err)
	}
	key, ok := s.Resume()
	if !ok || key != 0 {
		t.Fatalf("expected saved zero key, got %d (%v)", key, ok)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "chat_session.json"))
	if err := s.Clear(); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
	if err := s.Save(7); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.Resume(); ok {
		t.Fatalf("resume after clear must find nothing")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
