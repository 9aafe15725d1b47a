// Command compositor-sim runs an output on a simulated display.
//
// The views, workspace grid, effects and run length come from a YAML file;
// without one a built-in demo is used. The display is either the headless
// backend or the terminal:
//
//	compositor-sim -config sim.yaml
//	compositor-sim -backend term -frames 0
//
// In the terminal, q or Esc quits and the arrow keys switch workspaces.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	_ "github.com/gogpu/compositor/backend/headless"
	_ "github.com/gogpu/compositor/backend/term"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		backendArg = flag.String("backend", "", "display backend (headless, term)")
		frames     = flag.Int("frames", -1, "frame intervals to run, 0 runs until interrupted")
		snapshot   = flag.String("snapshot", "", "save the final screen as PNG")
		logPath    = flag.String("log", "", "log file (default stderr, discarded for term)")
		dump       = flag.Bool("dump-config", false, "print the effective configuration and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *backendArg != "" {
		cfg.Backend = *backendArg
	}
	if *frames >= 0 {
		cfg.Run.Frames = *frames
	}

	if *dump {
		data, err := config.Marshal(cfg)
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(data)
		return
	}

	logOut, closeLog, err := openLog(*logPath, cfg.Backend)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	compositor.SetLogger(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	if err := run(cfg, *snapshot); err != nil {
		log.Fatal(err)
	}
}

func openLog(path, backendName string) (io.Writer, func(), error) {
	switch {
	case path != "":
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		return f, func() { f.Close() }, nil
	case backendName == backend.BackendTerm:
		return io.Discard, func() {}, nil
	default:
		return os.Stderr, func() {}, nil
	}
}

func run(cfg *config.Config, snapshotPath string) error {
	transform, err := cfg.Transform()
	if err != nil {
		return err
	}
	loop := eventloop.New()
	b, err := backend.Get(cfg.Backend, backend.Config{
		Width:     cfg.Output.Width,
		Height:    cfg.Output.Height,
		Scale:     cfg.Output.Scale,
		Transform: transform,
		Loop:      loop,
		Refresh:   cfg.Run.Tick,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	d, ok := b.(display)
	if !ok {
		return fmt.Errorf("backend %q has no CPU screen", b.Name())
	}

	sim, err := newSimulator(cfg, loop, d)
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if t, ok := b.(interface{ Events() <-chan tcell.Event }); ok {
		go forwardEvents(ctx, loop, t.Events(), sim, stop)
	}

	go func() {
		ticker := time.NewTicker(cfg.Run.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				loop.Post(func() {
					sim.Step()
					if cfg.Run.Frames > 0 && sim.Steps() >= cfg.Run.Frames {
						stop()
					}
				})
			}
		}
	}()

	started := time.Now()
	_ = loop.Run(ctx, 0)

	stats := sim.out.Stats()
	compositor.Logger().Info("sim: done",
		"steps", sim.Steps(),
		"presented", d.PresentCount(),
		"frames", stats.Frames,
		"composited", stats.Composited,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed", time.Since(started).Round(time.Millisecond))

	if snapshotPath != "" {
		return savePNG(snapshotPath, d)
	}
	return nil
}

// forwardEvents hands terminal input to the loop goroutine.
func forwardEvents(ctx context.Context, loop *eventloop.Loop, events <-chan tcell.Event, sim *simulator, quit func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			loop.Post(func() { handleEvent(ev, sim, quit) })
		}
	}
}

func handleEvent(ev tcell.Event, sim *simulator, quit func()) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
			quit()
		case ev.Key() == tcell.KeyRight:
			sim.switchWorkspace(1)
		case ev.Key() == tcell.KeyLeft:
			sim.switchWorkspace(-1)
		}
	case *tcell.EventResize:
		if r, ok := sim.display.(interface{ HandleResize() }); ok {
			r.HandleResize()
		}
	}
}

func savePNG(path string, d display) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, d.Pixels().Image()); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: %w", err)
	}
	return f.Close()
}
