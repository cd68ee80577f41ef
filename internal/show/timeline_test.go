package show

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"12.5", 12500 * time.Millisecond},
		{"0", 0},
		{"01:23.456", 83456 * time.Millisecond},
		{"1:02:03.004", time.Hour + 2*time.Minute + 3004*time.Millisecond},
		{"00:05.5", 5500 * time.Millisecond},
		{"\uFEFF3", 3 * time.Second},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseTimestamp(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"", "x", "1:2:3:4", "a:10", "1:b"} {
		if _, err := parseTimestamp(bad); err == nil {
			t.Errorf("parseTimestamp(%q) accepted", bad)
		}
	}
}

func TestParseTimeline(t *testing.T) {
	p := mustParse(t, testShow)
	text := `
# comment
0 2 set [10, 20, 30]
1.5 00:03 fade [red]
4 5 auto []
5 6 auto [green]
6 7 temp_fade [0, 255, 1s, 500ms, 2s]
`
	cues, err := p.ParseTimeline(1, text, "right.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) != 5 {
		t.Fatalf("%d cues", len(cues))
	}

	set := cues[0]
	if set.Kind != Set || set.Fixture != "right" || set.End != 2*time.Second {
		t.Errorf("set cue %+v", set)
	}
	if !reflect.DeepEqual(set.Channels, []int{5, 6, 7}) || !reflect.DeepEqual(set.Levels, []float32{10, 20, 30}) {
		t.Errorf("set binds %v %v", set.Channels, set.Levels)
	}

	fade := cues[1]
	if fade.Kind != Fade || fade.Start != 1500*time.Millisecond || fade.End != 3*time.Second {
		t.Errorf("fade cue %+v", fade)
	}
	if !reflect.DeepEqual(fade.Levels, []float32{255, 255, 0, 0}) {
		t.Errorf("colour keyword expanded to %v", fade.Levels)
	}

	if !reflect.DeepEqual(cues[2].Channels, []int{5, 6, 7, 8}) || cues[2].Levels != nil {
		t.Errorf("auto [] %+v", cues[2])
	}
	if !reflect.DeepEqual(cues[3].Channels, []int{7}) {
		t.Errorf("auto [green] %+v", cues[3])
	}

	tf := cues[4]
	if tf.FadeIn != time.Second || tf.Hold != 500*time.Millisecond || tf.FadeOut != 2*time.Second {
		t.Errorf("temp_fade timing %+v", tf)
	}
	if !reflect.DeepEqual(tf.Channels, []int{5, 6}) {
		t.Errorf("temp_fade channels %v", tf.Channels)
	}
}

func TestParseTimelineErrors(t *testing.T) {
	p := mustParse(t, testShow)
	for _, line := range []string{
		"nonsense",
		"0 1 strobe [1]",
		"2 1 set [1]",
		"0 1 set [bright]",
		"0 1 auto [pan]",
		"0 1 temp_fade [1, 1s]",
		"0 1 temp_fade [1, 1s, soon, 1s]",
	} {
		if _, err := p.ParseTimeline(0, line, "left.txt"); err == nil {
			t.Errorf("%q accepted", line)
		}
	}
}

func TestLoadTimelines(t *testing.T) {
	dir := t.TempDir()
	doc := `
profiles:
  rgb: {channels: {red: 1, green: 2, blue: 3}}
patch:
  - {id: a, profile: rgb, base: 1, timeline: a.txt}
  - {id: b, profile: rgb, base: 4}
`
	if err := os.WriteFile(filepath.Join(dir, "show.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("0 0 set [1, 2, 3]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(filepath.Join(dir, "show.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cues, err := p.LoadTimelines()
	if err != nil {
		t.Fatal(err)
	}
	if len(cues) != 1 || cues[0].Fixture != "a" {
		t.Errorf("cues %+v", cues)
	}

	p.Patch[1].Timeline = "missing.txt"
	if _, err := p.LoadTimelines(); err == nil {
		t.Error("missing timeline accepted")
	}
}
