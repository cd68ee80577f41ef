// lightgen plays a show: per-fixture timelines drive explicit channel
// values, and a synthesis unit fills every channel left auto, either as a
// gradient between anchor fixtures or from per-attribute formulas.
//
// Frames go out at 40 Hz as Art-Net and, optionally, to an Enttec DMX USB
// Pro. When the show names an audio track, playback follows the track
// position.
//
// Usage:
//
//	lightgen [flags] show.yaml
//	lightgen -poll
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/scoobymooch/lightgen/internal/artnet"
	"github.com/scoobymooch/lightgen/internal/clock"
	"github.com/scoobymooch/lightgen/internal/control"
	"github.com/scoobymooch/lightgen/internal/dmxserial"
	"github.com/scoobymooch/lightgen/internal/logging"
	"github.com/scoobymooch/lightgen/internal/player"
	"github.com/scoobymooch/lightgen/internal/show"
	"github.com/scoobymooch/lightgen/unit"
)

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// options are the command-line settings of one run.
type options struct {
	showPath   string
	listen     string
	serialPort string
	frames     int
	static     string
	noArtNet   bool
}

func main() {
	poll := flag.Bool("poll", false, "Poll for Art-Net nodes and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	var opts options
	flag.StringVar(&opts.listen, "listen", "", "serve the control API on this address, e.g. :8080")
	flag.StringVar(&opts.serialPort, "serial", "", "Enttec DMX USB Pro serial port; \"list\" prints the ports")
	flag.IntVar(&opts.frames, "frames", 0, "render this many frames offline and print them")
	flag.StringVar(&opts.static, "static", "", "directory holding bundled unit resources")
	flag.BoolVar(&opts.noArtNet, "no-artnet", false, "do not broadcast Art-Net")
	flag.Parse()

	must(logging.Init(*logLevel))

	if *poll {
		nodes, err := artnet.Poll(5*time.Second, slog.Default())
		must(err)
		if len(nodes) == 0 {
			fmt.Println("No Art-Net nodes replied.")
		}
		for _, n := range nodes {
			fmt.Printf("Node: %-16s  IP: %s\n", n.Name, n.IP)
		}
		return
	}
	if opts.serialPort == "list" {
		ports, err := dmxserial.Ports()
		must(err)
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if flag.NArg() < 1 {
		fmt.Println("Usage: lightgen [flags] show.yaml")
		os.Exit(1)
	}
	opts.showPath = flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, opts)
	stop()
	must(err)
	fmt.Println("Done.")
}

// run loads the show and plays it until ctx is cancelled or the audio
// ends. Outputs opened here are closed before it returns.
func run(ctx context.Context, opts options) error {
	proj, err := show.Load(opts.showPath)
	if err != nil {
		return err
	}
	console, err := show.LoadConsole(proj)
	if err != nil {
		return err
	}

	u, err := unit.New(proj.UnitKind(), logging.NewHost(slog.Default(), proj.UnitKind(), opts.static))
	if err != nil {
		return err
	}
	p, err := player.New(u, proj, console, slog.Default())
	if err != nil {
		return err
	}

	if opts.frames > 0 {
		return render(p, opts.frames)
	}

	if !opts.noArtNet {
		sender, err := artnet.NewSender(proj.ArtNet.BroadcastSubnet, slog.Default())
		if err != nil {
			return fmt.Errorf("Art-Net sender: %w", err)
		}
		defer sender.Close()
		p.AddSink(sender)
	}
	if opts.serialPort != "" {
		widget, err := dmxserial.Open(opts.serialPort, proj.ArtNet.Universe)
		if err != nil {
			return err
		}
		defer widget.Close()
		p.AddSink(widget)
	}

	if opts.listen != "" {
		srv := control.NewServer(p, slog.Default())
		go func() {
			if err := srv.ListenAndServe(ctx, opts.listen); err != nil {
				slog.Error("control API stopped", "err", err)
			}
		}()
	}

	var c clock.Clock = clock.NewWall()
	if proj.Audio != "" {
		audio, err := clock.OpenAudio(proj.AudioPath())
		if err != nil {
			return err
		}
		defer audio.Close()
		if err := audio.Start(); err != nil {
			return err
		}
		slog.Info("playing", "audio", audio, "length", audio.Length())
		c = audio
	}

	if err := p.Run(ctx, c); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// render prints frames at the playback rate from show time zero.
func render(p *player.Player, n int) error {
	for i := 0; i < n; i++ {
		t := time.Duration(i) * time.Second / player.FrameRate
		out, err := p.Step(t)
		if err != nil {
			return err
		}
		fields := make([]string, len(out))
		for j, v := range out {
			fields[j] = fmt.Sprintf("%.1f", v)
		}
		fmt.Printf("%8.3f %s\n", t.Seconds(), strings.Join(fields, " "))
	}
	return nil
}
