package show

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CueKind is a timeline command.
type CueKind int

const (
	// Set writes values instantly.
	Set CueKind = iota
	// Fade moves linearly from the values in force at START to the target by END.
	Fade
	// TempSet holds values from START to END, then restores what was there.
	TempSet
	// TempFade fades in, holds, and fades out.
	TempFade
	// Auto releases channels to the generator.
	Auto
)

var cueNames = map[string]CueKind{
	"set":       Set,
	"fade":      Fade,
	"temp_set":  TempSet,
	"temp_fade": TempFade,
	"auto":      Auto,
}

func (k CueKind) String() string {
	for name, kind := range cueNames {
		if kind == k {
			return name
		}
	}
	return "cue(" + strconv.Itoa(int(k)) + ")"
}

// Cue is one timeline line bound to absolute channel addresses.
type Cue struct {
	Kind       CueKind
	Fixture    string
	Start, End time.Duration
	Channels   []int
	Levels     []float32

	FadeIn, Hold, FadeOut time.Duration
}

// colorMap expands friendly colour names into ordered channel tuples (per profile ordering).
var colorMap = map[string][]float32{
	"off":       {0, 0, 0, 0},
	"red":       {255, 255, 0, 0},
	"green":     {255, 0, 255, 0},
	"blue":      {255, 0, 0, 255},
	"white":     {255, 255, 255, 255},
	"amber":     {255, 255, 191, 0},
	"cyan":      {255, 0, 255, 255},
	"magenta":   {255, 255, 0, 255},
	"yellow":    {255, 255, 255, 0},
	"purple":    {255, 128, 0, 128},
	"pink":      {255, 255, 105, 180},
	"orange":    {255, 255, 69, 0},
	"warmwhite": {255, 255, 244, 229},
	"coldwhite": {255, 200, 255, 255},
	"gold":      {255, 255, 215, 0},
	"lime":      {255, 191, 255, 0},
	"turquoise": {255, 64, 224, 208},
	"violet":    {255, 238, 130, 238},
}

// parseTimestamp converts a timestamp string into a duration.
// Supported formats:
//   - Plain seconds: "12.5"
//   - MM:SS.mmm    : "01:23.456"
//   - HH:MM:SS.mmm : "1:02:03.004"
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.TrimSpace(strings.ReplaceAll(ts, "\uFEFF", ""))
	if ts == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	// Plain seconds (no colon)
	if !strings.Contains(ts, ":") {
		sec, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			return 0, fmt.Errorf("bad time %q: %w", ts, err)
		}
		return time.Duration(sec * float64(time.Second)), nil
	}

	// Split HH:MM:SS(.mmm) or MM:SS(.mmm)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad time %q; use MM:SS.mmm or HH:MM:SS.mmm", ts)
	}

	var h, m int64
	var secMilli string
	var err error
	if len(parts) == 3 {
		if h, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
			return 0, fmt.Errorf("bad hours in %q", ts)
		}
		parts = parts[1:]
	}
	if m, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, fmt.Errorf("bad minutes in %q", ts)
	}
	secMilli = parts[1]

	var sPart, msPart int64
	sStr, msStr, hasMS := strings.Cut(secMilli, ".")
	if sPart, err = strconv.ParseInt(sStr, 10, 64); err != nil {
		return 0, fmt.Errorf("bad seconds in %q", ts)
	}
	if hasMS {
		for len(msStr) < 3 {
			msStr += "0"
		}
		if len(msStr) > 3 {
			msStr = msStr[:3]
		}
		if msPart, err = strconv.ParseInt(msStr, 10, 64); err != nil {
			return 0, fmt.Errorf("bad milliseconds in %q", ts)
		}
	}

	ms := (((h*60+m)*60)+sPart)*1000 + msPart
	return time.Duration(ms) * time.Millisecond, nil
}

var timelineLineRE = regexp.MustCompile(`^([0-9.:\s]+?)\s+([0-9.:\s]+?)\s+(\w+)\s*\[(.*?)\]`)

// expandColour turns a single colour keyword into its channel tuple.
func expandColour(vals []string) []string {
	if len(vals) != 1 {
		return vals
	}
	cv, ok := colorMap[strings.ToLower(vals[0])]
	if !ok {
		return vals
	}
	out := make([]string, len(cv))
	for i, c := range cv {
		out[i] = strconv.FormatFloat(float64(c), 'f', -1, 32)
	}
	return out
}

// ParseTimeline parses the timeline text of the patch entry at index i.
func (p *Project) ParseTimeline(i int, text, source string) ([]Cue, error) {
	fixture := p.Patch[i]
	profile := p.Profiles[fixture.Profile]
	orderedAttrs := profile.ordered()
	base := fixture.Base - 1

	channelOf := func(attr string) int { return base + profile.Channels[attr] - 1 }

	var cues []Cue
	for lineIdx, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		matches := timelineLineRE.FindStringSubmatch(line)
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s line %d: bad format", source, lineIdx+1)
		}
		startStr, endStr, cmd := matches[1], matches[2], matches[3]
		var vals []string
		if body := strings.TrimSpace(matches[4]); body != "" {
			vals = strings.Split(body, ",")
		}
		for i := range vals {
			vals[i] = strings.TrimSpace(vals[i])
		}

		kind, ok := cueNames[cmd]
		if !ok {
			return nil, fmt.Errorf("%s line %d: unknown cmd %q", source, lineIdx+1, cmd)
		}
		start, err := parseTimestamp(startStr)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineIdx+1, err)
		}
		end, err := parseTimestamp(endStr)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineIdx+1, err)
		}
		if end < start {
			return nil, fmt.Errorf("%s line %d: end %s before start %s", source, lineIdx+1, endStr, startStr)
		}
		cue := Cue{Kind: kind, Fixture: fixture.ID, Start: start, End: end}

		switch kind {
		case Auto:
			// No values releases the whole fixture.
			names := vals
			if len(names) == 0 {
				names = orderedAttrs
			}
			for _, attr := range names {
				if _, ok := profile.Channels[attr]; !ok {
					return nil, fmt.Errorf("%s line %d: fixture %s has no attribute %q", source, lineIdx+1, fixture.ID, attr)
				}
				cue.Channels = append(cue.Channels, channelOf(attr))
			}

		case TempFade:
			if len(vals) < 4 {
				return nil, fmt.Errorf("%s line %d: temp_fade requires values, fade_in, hold, fade_out", source, lineIdx+1)
			}
			durs := vals[len(vals)-3:]
			if cue.FadeIn, err = time.ParseDuration(durs[0]); err == nil {
				if cue.Hold, err = time.ParseDuration(durs[1]); err == nil {
					cue.FadeOut, err = time.ParseDuration(durs[2])
				}
			}
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", source, lineIdx+1, err)
			}
			if err := cue.bindLevels(orderedAttrs, expandColour(vals[:len(vals)-3]), channelOf); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", source, lineIdx+1, err)
			}

		default:
			if err := cue.bindLevels(orderedAttrs, expandColour(vals), channelOf); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", source, lineIdx+1, err)
			}
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

// bindLevels assigns values to attributes in channel order.
func (c *Cue) bindLevels(orderedAttrs, vals []string, channelOf func(string) int) error {
	for i, attr := range orderedAttrs {
		if i >= len(vals) {
			break
		}
		v, err := strconv.ParseFloat(vals[i], 32)
		if err != nil {
			return fmt.Errorf("bad value %q for %s", vals[i], attr)
		}
		c.Channels = append(c.Channels, channelOf(attr))
		c.Levels = append(c.Levels, float32(v))
	}
	return nil
}

// LoadTimelines parses all per-fixture timeline files into a flat cue list.
func (p *Project) LoadTimelines() ([]Cue, error) {
	var cues []Cue
	for i, fixture := range p.Patch {
		if fixture.Timeline == "" {
			continue
		}
		path := p.resolve(fixture.Timeline)
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		fc, err := p.ParseTimeline(i, string(fileData), fixture.Timeline)
		if err != nil {
			return nil, err
		}
		cues = append(cues, fc...)
	}
	return cues, nil
}
