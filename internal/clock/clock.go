// Package clock supplies the time base playback runs against: either the
// wall clock, or the position of an audio track playing through the
// speaker so lights stay locked to the music.
package clock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Clock reports how far playback has progressed.
type Clock interface {
	// Elapsed is the time since playback started.
	Elapsed() time.Duration
	// Done is closed when playback has nothing left to play. It may be nil.
	Done() <-chan struct{}
}

// Wall runs from the moment it is created and never finishes.
type Wall struct {
	start time.Time
}

// NewWall starts a wall clock now.
func NewWall() *Wall { return &Wall{start: time.Now()} }

// Elapsed is the time since NewWall.
func (w *Wall) Elapsed() time.Duration { return time.Since(w.start) }

// Done is nil; a wall clock never finishes.
func (w *Wall) Done() <-chan struct{} { return nil }

// Audio reports the playback position of a decoded track.
type Audio struct {
	path   string
	stream beep.StreamSeekCloser
	format beep.Format
	done   chan struct{}
	once   sync.Once
}

// OpenAudio decodes an mp3 or wav file. Playback starts with Start.
func OpenAudio(path string) (*Audio, error) {
	stream, format, err := decodeAudio(path)
	if err != nil {
		return nil, err
	}
	return &Audio{path: path, stream: stream, format: format, done: make(chan struct{})}, nil
}

// decodeAudio opens and decodes an mp3 or wav file using faiface/beep.
func decodeAudio(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", ext)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	if ext == ".mp3" {
		stream, format, err = mp3.Decode(file)
	} else {
		stream, format, err = wav.Decode(file)
	}
	if err != nil {
		file.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return stream, format, nil
}

// Start opens the speaker and begins playback. Done closes when the track
// ends.
func (a *Audio) Start() error {
	if err := speaker.Init(a.format.SampleRate, a.format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker: %w", err)
	}
	speaker.Play(beep.Seq(a.stream, beep.Callback(func() {
		a.once.Do(func() { close(a.done) })
	})))
	return nil
}

// Elapsed is the playback position of the track.
func (a *Audio) Elapsed() time.Duration {
	speaker.Lock()
	pos := a.stream.Position()
	speaker.Unlock()
	return a.format.SampleRate.D(pos)
}

// Done is closed when the track has played to the end.
func (a *Audio) Done() <-chan struct{} { return a.done }

// Length is the duration of the whole track.
func (a *Audio) Length() time.Duration { return a.format.SampleRate.D(a.stream.Len()) }

// String is the track path.
func (a *Audio) String() string { return a.path }

// Close stops playback and closes the decoder.
func (a *Audio) Close() error {
	speaker.Clear()
	return a.stream.Close()
}
