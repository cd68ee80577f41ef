// Package player drives a synthesis unit frame by frame: it pushes console
// values in, asks for the patched range, and fans the result out to DMX
// sinks as 512-channel universes.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/scoobymooch/lightgen/internal/clock"
	"github.com/scoobymooch/lightgen/internal/show"
	"github.com/scoobymooch/lightgen/unit"
	"github.com/scoobymooch/lightgen/universe"
)

// FrameRate is the playback rate in frames per second.
const FrameRate = 40

// UniverseSize is the number of channels carried per output universe.
const UniverseSize = 512

// Sink receives one output universe per call.
type Sink interface {
	WriteUniverse(universe uint16, dmx []byte) error
}

// syncer is implemented by sinks that latch buffered frames together.
type syncer interface {
	SendArtSync() error
}

// ErrOutOfRange is returned by Override for channels outside the patch.
var ErrOutOfRange = errors.New("channels outside the patched range")

// Status is a snapshot of playback.
type Status struct {
	Kind      string        `json:"kind"`
	Frames    uint64        `json:"frames"`
	ShowTime  time.Duration `json:"show_time"`
	Start     int           `json:"start"`
	Length    int           `json:"length"`
	Overrides int           `json:"overrides"`
}

// Player serialises every call into its unit.
type Player struct {
	mu           sync.Mutex
	unit         unit.Unit
	kind         string
	console      *show.Console
	sinks        []Sink
	baseUniverse uint16
	logger       *slog.Logger

	start, length int
	overrides     map[int]universe.Value
	last          []float32
	showTime      time.Duration
	frames        uint64
}

// New binds u to the project: it sends the patch metadata and the
// project's formula document, if any.
func New(u unit.Unit, proj *show.Project, console *show.Console, logger *slog.Logger) (*Player, error) {
	p := &Player{
		unit:         u,
		kind:         proj.UnitKind(),
		console:      console,
		baseUniverse: proj.ArtNet.Universe,
		logger:       logger,
		overrides:    map[int]universe.Value{},
	}
	p.start, p.length = console.Span()

	u.SetChannelMetadata(proj.MetadataBatch())
	doc, err := proj.FormulaDocument()
	if err != nil {
		return nil, fmt.Errorf("formulas: %w", err)
	}
	if doc != nil {
		u.SetConfiguration(doc)
	}
	logger.Info("player ready", "unit", p.kind, "start", p.start, "channels", p.length)
	return p, nil
}

// AddSink registers an output.
func (p *Player) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Step renders the frame at show time t and writes it to every sink. It
// returns the unit's output for the patched range.
func (p *Player) Step(t time.Duration) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	values := p.console.ValuesAt(t)
	for ch, v := range p.overrides {
		values[ch-p.start] = v
	}
	p.unit.SetInputValues(universe.EncodeValueBatch(p.start, values))

	req := unit.Request{Start: p.start, Length: p.length, TimeMicros: max(t, 0).Microseconds()}
	out := unit.DecodeResponse(p.unit.Process(req.Encode()))
	p.last, p.showTime = out, t
	p.frames++

	return out, p.emit(out)
}

// emit splits the output into universes and writes each to every sink.
func (p *Player) emit(out []float32) error {
	if len(p.sinks) == 0 || p.length == 0 {
		return nil
	}
	first := p.start / UniverseSize
	last := (p.start + p.length - 1) / UniverseSize

	var errs []error
	for u := first; u <= last; u++ {
		dmx := make([]byte, UniverseSize)
		for i := range dmx {
			if off := u*UniverseSize + i - p.start; off >= 0 && off < len(out) {
				dmx[i] = toDMX(out[off])
			}
		}
		for _, s := range p.sinks {
			if err := s.WriteUniverse(p.baseUniverse+uint16(u), dmx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, s := range p.sinks {
		if sy, ok := s.(syncer); ok {
			if err := sy.SendArtSync(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// toDMX clamps a synthesised level to a DMX slot.
func toDMX(v float32) byte {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(math.Round(float64(v)))
}

// Run renders frames at FrameRate against c until ctx is cancelled or the
// clock finishes.
func (p *Player) Run(ctx context.Context, c clock.Clock) error {
	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()
	p.logger.Info("starting frame loop", "hz", FrameRate)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.Done():
			p.logger.Info("clock finished", "frames", p.Status().Frames)
			return nil
		case <-ticker.C:
			if _, err := p.Step(p.console.ShowTime(c.Elapsed())); err != nil {
				p.logger.Warn("frame output failed", "err", err)
			}
		}
	}
}

// Override pins channels starting at start to values until cleared. Auto
// values hand a channel back to synthesis even if the console drives it.
func (p *Player) Override(start int, values []universe.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if start < p.start || start+len(values) > p.start+p.length {
		return fmt.Errorf("%w: %d..%d not in %d..%d", ErrOutOfRange,
			start, start+len(values)-1, p.start, p.start+p.length-1)
	}
	for i, v := range values {
		p.overrides[start+i] = v
	}
	return nil
}

// ClearOverrides returns every channel to the console.
func (p *Player) ClearOverrides() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.overrides)
}

// Configure hands a formula document to the unit. It is not kept.
func (p *Player) Configure(doc []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unit.SetConfiguration(doc)
}

// LastFrame returns a copy of the most recent output.
func (p *Player) LastFrame() (start int, values []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start, append([]float32(nil), p.last...)
}

// Status returns a snapshot of playback.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Kind:      p.kind,
		Frames:    p.frames,
		ShowTime:  p.showTime,
		Start:     p.start,
		Length:    p.length,
		Overrides: len(p.overrides),
	}
}
