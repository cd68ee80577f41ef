package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scoobymooch/lightgen/internal/logging"
	"github.com/scoobymooch/lightgen/internal/player"
	"github.com/scoobymooch/lightgen/internal/show"
	"github.com/scoobymooch/lightgen/unit"
)

func TestRender(t *testing.T) {
	proj, err := show.Parse([]byte(`
generator: expression
formulas: {red: "time * 40"}
profiles:
  r: {channels: {red: 1}}
patch:
  - {id: a, profile: r, base: 1}
`))
	if err != nil {
		t.Fatal(err)
	}
	u, err := unit.New(proj.UnitKind(), logging.NewHost(slog.Default(), proj.UnitKind(), ""))
	if err != nil {
		t.Fatal(err)
	}
	p, err := player.New(u, proj, show.NewConsole(proj, nil), slog.Default())
	if err != nil {
		t.Fatal(err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	err = render(p, 3)
	os.Stdout = stdout
	w.Close()
	if err != nil {
		t.Fatal(err)
	}
	out, _ := io.ReadAll(r)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	want := []string{"   0.000 0.0", "   0.025 1.0", "   0.050 2.0"}
	if len(lines) != len(want) {
		t.Fatalf("output %q", out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: %q, want %q", i, lines[i], want[i])
		}
	}
}

const redShow = `
generator: expression
formulas: {red: "time * 40"}
profiles:
  r: {channels: {red: 1}}
patch:
  - {id: a, profile: r, base: 1}
`

func TestRunReturnsLoadError(t *testing.T) {
	err := run(context.Background(), options{showPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("run with a missing show: want error")
	}
}

func TestRunReturnsWhenCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.yaml")
	if err := os.WriteFile(path, []byte(redShow), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(ctx, options{showPath: path, noArtNet: true}); err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
}
