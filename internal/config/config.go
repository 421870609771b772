// Package config resolves a run's parameters from three layers: built-in
// defaults, an optional TOML presets file, and command-line flags, in
// rising precedence.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/kdforest/kdforest/internal/colorsource"
	"github.com/kdforest/kdforest/internal/colorspace"
	"github.com/kdforest/kdforest/internal/frontier"
)

// Presets carries the raw values a presets file or the CLI supplies
// before validation; mode, selection and color space are still strings.
type Presets struct {
	BitDepth   int    `toml:"bit_depth"`
	Mode       string `toml:"mode"`
	Selection  string `toml:"selection"`
	ColorSpace string `toml:"color_space"`
	Animate    bool   `toml:"animate"`
	Output     string `toml:"output"`
	Seed       int64  `toml:"seed"`
}

// DefaultPresets returns the built-in defaults, the lowest-precedence
// layer.
func DefaultPresets() *Presets {
	return &Presets{
		BitDepth:   24,
		Mode:       "hue-sort",
		Selection:  "min",
		ColorSpace: "Lab",
	}
}

// Load decodes the presets file at path. A missing file (or an empty
// path) is not an error: the built-in defaults come back unchanged.
func Load(path string) (*Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	if _, err := toml.DecodeFile(path, presets); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPresets(), nil
		}
		return nil, fmt.Errorf("parsing presets file %s: %w", path, err)
	}
	return presets, nil
}

// Options is the fully validated parameter set a run executes with.
type Options struct {
	BitDepth  int
	Mode      colorsource.Mode
	Selection frontier.Selection
	Space     colorspace.Space
	Animate   bool
	Output    string
	Seed      uint32

	Width, Height int
	Size          int
}

// Resolve validates the presets and fixes the derived geometry. The
// default output path depends on animate mode, so it is resolved here
// rather than in DefaultPresets.
func (p *Presets) Resolve() (*Options, error) {
	if p.BitDepth < 2 || p.BitDepth > 24 {
		return nil, fmt.Errorf("invalid bit depth: %d (must be between 2 and 24)", p.BitDepth)
	}
	mode, ok := colorsource.ParseMode(p.Mode)
	if !ok {
		return nil, fmt.Errorf("invalid mode: %q", p.Mode)
	}
	sel, ok := frontier.ParseSelection(p.Selection)
	if !ok {
		return nil, fmt.Errorf("invalid selection: %q", p.Selection)
	}
	space, ok := colorspace.ParseSpace(p.ColorSpace)
	if !ok {
		return nil, fmt.Errorf("invalid color space: %q", p.ColorSpace)
	}
	if p.Seed < 0 || p.Seed > 0xFFFFFFFF {
		return nil, fmt.Errorf("invalid seed: %d (must fit in 32 bits)", p.Seed)
	}

	output := p.Output
	if output == "" {
		if p.Animate {
			output = "frames"
		} else {
			output = "kd-forest.png"
		}
	}

	opts := &Options{
		BitDepth:  p.BitDepth,
		Mode:      mode,
		Selection: sel,
		Space:     space,
		Animate:   p.Animate,
		Output:    output,
		Seed:      uint32(p.Seed),
	}
	opts.Width = 1 << uint((p.BitDepth+1)/2)
	opts.Height = 1 << uint(p.BitDepth/2)
	opts.Size = opts.Width * opts.Height
	return opts, nil
}
