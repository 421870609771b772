// Package render owns the output bitmap and its PNG encoding, including
// the numbered frame sequence animate mode produces.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/kdforest/kdforest/internal/colorspace"
)

// Canvas is a width x height grid of 8-bit RGB cells. Each cell is
// written at most once, when its pixel is placed.
type Canvas struct {
	width, height int
	img           *image.NRGBA
}

// NewCanvas returns an all-black, fully opaque canvas.
func NewCanvas(width, height int) *Canvas {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return &Canvas{width: width, height: height, img: img}
}

// Width is the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height is the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// Set writes a packed 24-bit color into the cell at (x, y).
func (c *Canvas) Set(x, y int, color uint32) {
	r, g, b := colorspace.Unpack(color)
	i := c.img.PixOffset(x, y)
	c.img.Pix[i] = r
	c.img.Pix[i+1] = g
	c.img.Pix[i+2] = b
}

// At reads back the packed 24-bit color at (x, y).
func (c *Canvas) At(x, y int) uint32 {
	i := c.img.PixOffset(x, y)
	return uint32(c.img.Pix[i])<<16 | uint32(c.img.Pix[i+1])<<8 | uint32(c.img.Pix[i+2])
}

// Encode writes the canvas as a PNG. The canvas is fully opaque, so the
// encoder emits 8-bit RGB scanlines.
func (c *Canvas) Encode(w io.Writer) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, c.img)
}

// WritePNG encodes the canvas into the file at path.
func WritePNG(path string, c *Canvas) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Encode(file); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return file.Close()
}

// terminalFrames is how many copies of the final image end an animation,
// so the last state lingers when the frames are assembled into a video.
const terminalFrames = 120

// FrameWriter numbers animation frames 0000.png, 0001.png, ... into a
// directory.
type FrameWriter struct {
	dir   string
	frame int
}

// NewFrameWriter creates dir if needed and returns a writer positioned
// at frame 0000.
func NewFrameWriter(dir string) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FrameWriter{dir: dir}, nil
}

func (fw *FrameWriter) framePath(n int) string {
	return filepath.Join(fw.dir, fmt.Sprintf("%04d.png", n))
}

// WriteFrame encodes the canvas as the next numbered frame.
func (fw *FrameWriter) WriteFrame(c *Canvas) error {
	if err := WritePNG(fw.framePath(fw.frame), c); err != nil {
		return err
	}
	fw.frame++
	return nil
}

// Finish writes the final image as last.png and emits the terminal
// frames, symlinking them to last.png where the filesystem allows and
// falling back to full copies where it does not.
func (fw *FrameWriter) Finish(c *Canvas) error {
	last := filepath.Join(fw.dir, "last.png")
	if err := WritePNG(last, c); err != nil {
		return err
	}

	for i := 0; i < terminalFrames; i++ {
		path := fw.framePath(fw.frame)
		if err := os.Symlink("last.png", path); err != nil {
			if err := WritePNG(path, c); err != nil {
				return err
			}
		}
		fw.frame++
	}
	return nil
}
