package peerlog

import (
	"path/filepath"
	"testing"
)

func TestLog_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peer_history.json")

	l := New(path)
	l.RecordUp("peer-A")
	l.RecordUp("peer-A")
	l.RecordDown("peer-A")
	l.RecordDisconnect("peer-A", true)
	l.RecordUp("peer-B")

	if err := l.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	l2 := New(path)
	if l2.Count() != 2 {
		t.Fatalf("Count = %d, want 2", l2.Count())
	}
	r := l2.Get("peer-A")
	if r == nil {
		t.Fatal("peer-A not found")
	}
	if r.UpCount != 2 || r.DownCount != 1 {
		t.Errorf("UpCount=%d DownCount=%d, want 2 and 1", r.UpCount, r.DownCount)
	}
	if r.LastDisconnect != "alive" {
		t.Errorf("LastDisconnect = %q, want %q", r.LastDisconnect, "alive")
	}
}

func TestLog_GetUnknownPeer(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "peer_history.json"))
	if r := l.Get("ghost"); r != nil {
		t.Fatalf("Get(unknown) = %+v, want nil", r)
	}
}

func TestLog_LoadMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "does-not-exist.json"))
	if l.Count() != 0 {
		t.Fatalf("Count = %d, want 0", l.Count())
	}
}
