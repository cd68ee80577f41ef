// Package unit exposes the synthesis engines through the entry points a
// host calls once per frame. Every entry point takes and returns the binary
// payloads described in package payload.
//
// A unit is single-threaded: the host must not call into one instance
// concurrently. Separate instances share nothing.
package unit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/scoobymooch/lightgen/payload"
	"github.com/scoobymooch/lightgen/universe"
)

// LogLevel is the severity passed to Host.Log.
type LogLevel int

const (
	Trace    LogLevel = 0
	Debug    LogLevel = 10
	Info     LogLevel = 20
	Warn     LogLevel = 30
	Error    LogLevel = 40
	Critical LogLevel = 50
)

func (l LogLevel) String() string {
	switch {
	case l < Debug:
		return "TRACE"
	case l < Info:
		return "DEBUG"
	case l < Warn:
		return "INFO"
	case l < Error:
		return "WARN"
	case l < Critical:
		return "ERROR"
	}
	return "CRITICAL"
}

// ErrNoResource is returned by Host.Resource when the name is not bundled.
var ErrNoResource = errors.New("resource not found")

// Host is the set of services a unit may call back into.
type Host interface {
	Log(level LogLevel, text string)
	// Resource reads a file bundled with the unit.
	Resource(name string) ([]byte, error)
}

// Unit is one synthesis instance.
type Unit interface {
	SetChannelMetadata(batch []byte)
	SetInputValues(batch []byte)
	// SetConfiguration loads a formula document. Units without
	// configuration ignore it.
	SetConfiguration(doc []byte)
	// ResetState clears derived state. Neither engine keeps any today.
	ResetState()
	Process(request []byte) []byte
}

// Request is a decoded synthesis request.
type Request struct {
	Start      int
	Length     int
	TimeMicros int64
}

// Encode returns the wire form of r.
func (r Request) Encode() []byte {
	p := payload.Preallocated(24)
	p.WriteInt64(int64(r.Start))
	p.WriteInt64(int64(r.Length))
	p.WriteInt64(r.TimeMicros)
	return p.Bytes()
}

// DecodeRequest reads a synthesis request and checks its range.
func DecodeRequest(b []byte) Request {
	p := payload.FromBytes(b)
	start, length := p.ReadInt64(), p.ReadInt64()
	r := Request{TimeMicros: p.ReadInt64()}
	if start < 0 || start > universe.Size || length < 0 || length > universe.Size {
		payload.Violation("DecodeRequest", "range start=%d length=%d", start, length)
	}
	r.Start, r.Length = int(start), int(length)
	universe.CheckRange(r.Start, r.Length)
	return r
}

func encodeResponse(values []float32) []byte {
	p := payload.Preallocated(len(values) * 4)
	for _, v := range values {
		p.WriteFloat32(v)
	}
	return p.Bytes()
}

// DecodeResponse reads the float values returned by Process.
func DecodeResponse(b []byte) []float32 {
	p := payload.FromBytes(b)
	out := make([]float32, 0, len(b)/4)
	for p.Remaining() >= 4 {
		out = append(out, p.ReadFloat32())
	}
	return out
}

// Factory builds a unit bound to a host.
type Factory func(Host) Unit

var kinds = map[string]Factory{
	"gradient-generator": func(h Host) Unit { return NewGradient(h) },
	"function-eval":      func(h Host) Unit { return NewExpression(h) },
}

// Kinds lists the unit kinds New accepts.
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a unit of the named kind.
func New(kind string, host Host) (Unit, error) {
	f, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}
	return f(host), nil
}

// hostHandler routes slog records from the engines to Host.Log as one
// line of text. Groups become dotted key prefixes.
type hostHandler struct {
	host   Host
	attrs  []slog.Attr
	prefix string
}

func (h *hostHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *hostHandler) Handle(_ context.Context, r slog.Record) error {
	text := r.Message
	for _, a := range h.attrs {
		text += " " + a.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		text += " " + h.qualify(a).String()
		return true
	})
	h.host.Log(levelFromSlog(r.Level), text)
	return nil
}

func (h *hostHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}

func (h *hostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &hostHandler{host: h.host, prefix: h.prefix, attrs: append([]slog.Attr{}, h.attrs...)}
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

func (h *hostHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &hostHandler{host: h.host, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func levelFromSlog(l slog.Level) LogLevel {
	switch {
	case l < slog.LevelDebug:
		return Trace
	case l < slog.LevelInfo:
		return Debug
	case l < slog.LevelWarn:
		return Info
	case l < slog.LevelError:
		return Warn
	case l < slog.LevelError+4:
		return Error
	}
	return Critical
}
