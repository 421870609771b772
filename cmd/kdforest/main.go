package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/kdforest/kdforest/internal/colorsource"
	"github.com/kdforest/kdforest/internal/config"
	"github.com/kdforest/kdforest/internal/frontier"
	"github.com/kdforest/kdforest/internal/render"
	"github.com/kdforest/kdforest/internal/rng"
)

func main() {
	defaults := config.DefaultPresets()

	var bitDepth int
	var mode, selection, space, output, configPath string
	var animate bool
	var seed int64

	flag.IntVar(&bitDepth, "b", defaults.BitDepth, "Use all DEPTH-bit colors")
	flag.IntVar(&bitDepth, "bit-depth", defaults.BitDepth, "Use all DEPTH-bit colors")
	flag.StringVar(&mode, "m", defaults.Mode, "Color order: hue-sort, random, morton, hilbert or sequential")
	flag.StringVar(&mode, "mode", defaults.Mode, "Color order: hue-sort, random, morton, hilbert or sequential")
	flag.StringVar(&selection, "s", defaults.Selection, "Placement selection: min or mean")
	flag.StringVar(&selection, "selection", defaults.Selection, "Placement selection: min or mean")
	flag.StringVar(&space, "c", defaults.ColorSpace, "Color space: RGB, Lab or Luv")
	flag.StringVar(&space, "color-space", defaults.ColorSpace, "Color space: RGB, Lab or Luv")
	flag.BoolVar(&animate, "a", false, "Generate frames of an animation")
	flag.BoolVar(&animate, "animate", false, "Generate frames of an animation")
	flag.StringVar(&output, "o", "", "Output PNG path, or frame directory with -a (default: kd-forest.png / frames)")
	flag.StringVar(&output, "output", "", "Output PNG path, or frame directory with -a (default: kd-forest.png / frames)")
	flag.Int64Var(&seed, "seed", 0, "32-bit RNG seed")
	flag.StringVar(&configPath, "config", "", "Path to a presets file (TOML)")
	flag.Parse()

	presets, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading presets: %v\n", err)
		os.Exit(1)
	}

	// CLI flags beat the presets file, which beats the defaults.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "b", "bit-depth":
			presets.BitDepth = bitDepth
		case "m", "mode":
			presets.Mode = mode
		case "s", "selection":
			presets.Selection = selection
		case "c", "color-space":
			presets.ColorSpace = space
		case "a", "animate":
			presets.Animate = animate
		case "o", "output":
			presets.Output = output
		case "seed":
			presets.Seed = seed
		}
	})

	opts, err := presets.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *config.Options) error {
	fmt.Printf("Generating a %d-bit, %dx%d image (%d pixels)\n",
		opts.BitDepth, opts.Width, opts.Height, opts.Size)

	r := rng.New(opts.Seed)
	colors, err := colorsource.Generate(opts.BitDepth, opts.Mode, r)
	if err != nil {
		return err
	}

	canvas := render.NewCanvas(opts.Width, opts.Height)
	fr := frontier.New(opts.Width, opts.Height, opts.Selection, opts.Space, r)

	var frames *render.FrameWriter
	if opts.Animate {
		frames, err = render.NewFrameWriter(opts.Output)
		if err != nil {
			return err
		}
	}

	progress := newProgress(os.Stdout)
	maxLen := 0

	err = frontier.Schedule(opts.BitDepth, opts.Size, func(j int) error {
		if fr.Placed()%opts.Width == 0 {
			if frames != nil {
				if err := frames.WriteFrame(canvas); err != nil {
					return err
				}
			}
			progress.Printf("%.2f%%\t| boundary size: %d\t| max boundary size: %d",
				100*float64(fr.Placed())/float64(opts.Size), fr.Len(), maxLen)
		}

		x, y, err := fr.Place(colors[j])
		if err != nil {
			return err
		}
		canvas.Set(x, y, colors[j])
		if fr.Len() > maxLen {
			maxLen = fr.Len()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.Animate {
		if err := frames.Finish(canvas); err != nil {
			return err
		}
	} else if err := render.WritePNG(opts.Output, canvas); err != nil {
		return err
	}

	progress.Printf("%.2f%%\t| boundary size: 0\t| max boundary size: %d", 100.0, maxLen)
	progress.Done()
	return nil
}

// progressPrinter overwrites a single status line on a terminal and
// falls back to one line per update when stdout is redirected.
type progressPrinter struct {
	out *os.File
	tty bool
}

func newProgress(out *os.File) *progressPrinter {
	return &progressPrinter{out: out, tty: term.IsTerminal(int(out.Fd()))}
}

func (p *progressPrinter) Printf(format string, args ...any) {
	if p.tty {
		fmt.Fprint(p.out, "\033[2K\r")
	}
	fmt.Fprintf(p.out, format, args...)
	if !p.tty {
		fmt.Fprintln(p.out)
	}
}

// Done terminates the status line once the run is complete.
func (p *progressPrinter) Done() {
	if p.tty {
		fmt.Fprintln(p.out)
	}
}
