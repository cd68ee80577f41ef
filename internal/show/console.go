package show

import (
	"sort"
	"time"

	"github.com/scoobymooch/lightgen/universe"
)

// Console plays timeline cues back as channel values. Every patched
// channel starts auto; cues take effect in start order, later cues winning.
type Console struct {
	cues   []Cue
	from   [][]float32
	offset time.Duration
	start  int
	length int
}

// NewConsole builds a console over the project's patch span. The levels a
// fade departs from are resolved here, once.
func NewConsole(p *Project, cues []Cue) *Console {
	c := &Console{
		cues:   append([]Cue(nil), cues...),
		offset: time.Duration(p.OffsetMS) * time.Millisecond,
	}
	c.start, c.length = p.Span()
	sort.SliceStable(c.cues, func(i, j int) bool { return c.cues[i].Start < c.cues[j].Start })

	c.from = make([][]float32, len(c.cues))
	for k, cue := range c.cues {
		if cue.Kind != Fade && cue.Kind != TempFade {
			continue
		}
		before := c.eval(cue.Start, k)
		from := make([]float32, len(cue.Channels))
		for i, ch := range cue.Channels {
			if v := before[ch-c.start]; !v.Auto {
				from[i] = v.Level
			}
		}
		c.from[k] = from
	}
	return c
}

// LoadConsole reads the project's timelines and builds a console from them.
func LoadConsole(p *Project) (*Console, error) {
	cues, err := p.LoadTimelines()
	if err != nil {
		return nil, err
	}
	return NewConsole(p, cues), nil
}

// Span is the channel range the console drives.
func (c *Console) Span() (start, length int) { return c.start, c.length }

// Cues returns the cues in playback order.
func (c *Console) Cues() []Cue { return c.cues }

// ShowTime converts time since playback began into show time.
func (c *Console) ShowTime(elapsed time.Duration) time.Duration { return elapsed - c.offset }

// ValuesAt returns the value of every channel of the span at show time t.
func (c *Console) ValuesAt(t time.Duration) []universe.Value {
	return c.eval(t, len(c.cues))
}

// ValueBatch is the wire form of ValuesAt.
func (c *Console) ValueBatch(t time.Duration) []byte {
	return universe.EncodeValueBatch(c.start, c.ValuesAt(t))
}

// eval applies the first n cues at time t.
func (c *Console) eval(t time.Duration, n int) []universe.Value {
	out := make([]universe.Value, c.length)
	for i := range out {
		out[i] = universe.AutoValue
	}
	for k := 0; k < n; k++ {
		cue := c.cues[k]
		if cue.Start > t {
			break
		}
		elapsed := t - cue.Start
		switch cue.Kind {
		case Set:
			c.write(out, cue, func(i int) float32 { return cue.Levels[i] })

		case Fade:
			f := progress(elapsed, cue.End-cue.Start)
			c.write(out, cue, func(i int) float32 { return lerp(c.from[k][i], cue.Levels[i], f) })

		case TempSet:
			if t < cue.End {
				c.write(out, cue, func(i int) float32 { return cue.Levels[i] })
			}

		case TempFade:
			switch {
			case elapsed < cue.FadeIn:
				f := progress(elapsed, cue.FadeIn)
				c.write(out, cue, func(i int) float32 { return lerp(c.from[k][i], cue.Levels[i], f) })
			case elapsed < cue.FadeIn+cue.Hold:
				c.write(out, cue, func(i int) float32 { return cue.Levels[i] })
			case elapsed < cue.FadeIn+cue.Hold+cue.FadeOut:
				f := progress(elapsed-cue.FadeIn-cue.Hold, cue.FadeOut)
				c.write(out, cue, func(i int) float32 { return lerp(cue.Levels[i], c.from[k][i], f) })
			}

		case Auto:
			for _, ch := range cue.Channels {
				out[ch-c.start] = universe.AutoValue
			}
		}
	}
	return out
}

func (c *Console) write(out []universe.Value, cue Cue, level func(i int) float32) {
	for i, ch := range cue.Channels {
		out[ch-c.start] = universe.Explicit(level(i))
	}
}

// progress is how far elapsed is through d, clamped to 0..1.
func progress(elapsed, d time.Duration) float32 {
	if d <= 0 || elapsed >= d {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float32(float64(elapsed) / float64(d))
}

func lerp(a, b, f float32) float32 { return a + (b-a)*f }
