package clock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWall(t *testing.T) {
	var c Clock = NewWall()
	a := c.Elapsed()
	time.Sleep(5 * time.Millisecond)
	if b := c.Elapsed(); b < a+5*time.Millisecond {
		t.Errorf("elapsed went from %v to %v", a, b)
	}
	if c.Done() != nil {
		t.Error("wall clock finishes")
	}
}

func TestOpenAudioRejects(t *testing.T) {
	dir := t.TempDir()
	ogg := filepath.Join(dir, "track.ogg")
	if err := os.WriteFile(ogg, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenAudio(ogg); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("ogg: %v", err)
	}
	if _, err := OpenAudio(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("missing file opened")
	}
	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("not a wave file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenAudio(junk); err == nil {
		t.Error("junk wav decoded")
	}
}
