package render

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasSetAt(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(3, 1, 0xABCDEF)
	assert.Equal(t, uint32(0xABCDEF), c.At(3, 1))
	assert.Equal(t, uint32(0x000000), c.At(0, 0))
}

// TestEncodeRoundTrip tests that an encoded canvas decodes back with the
// same bounds and pixel values.
func TestEncodeRoundTrip(t *testing.T) {
	c := NewCanvas(8, 4)
	c.Set(0, 0, 0xFF0000)
	c.Set(7, 3, 0x0000FF)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 8, bounds.Dx())
	assert.Equal(t, 4, bounds.Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)

	r, g, b, _ = img.At(7, 3).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0xFFFF), b)
}

// TestEncodeDeterministic tests that the same canvas always encodes to
// the same PNG bytes.
func TestEncodeDeterministic(t *testing.T) {
	c := NewCanvas(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c.Set(x, y, uint32(x*16+y)<<8)
		}
	}

	var a, b bytes.Buffer
	require.NoError(t, c.Encode(&a))
	require.NoError(t, c.Encode(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWritePNG(t *testing.T) {
	c := NewCanvas(2, 2)
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, WritePNG(path, c))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func TestWritePNGBadPath(t *testing.T) {
	c := NewCanvas(2, 2)
	err := WritePNG(filepath.Join(t.TempDir(), "missing", "out.png"), c)
	assert.Error(t, err)
}

// TestFrameWriter tests frame numbering and the terminal frame fan-out.
func TestFrameWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	fw, err := NewFrameWriter(dir)
	require.NoError(t, err)

	c := NewCanvas(2, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, fw.WriteFrame(c))
	}
	for _, name := range []string{"0000.png", "0001.png", "0002.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	require.NoError(t, fw.Finish(c))

	_, err = os.Stat(filepath.Join(dir, "last.png"))
	require.NoError(t, err)

	// 3 numbered frames plus 120 terminal frames.
	for _, name := range []string{"0003.png", "0122.png"} {
		final := filepath.Join(dir, name)
		info, err := os.Lstat(final)
		require.NoError(t, err, name)

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(final)
			require.NoError(t, err)
			assert.Equal(t, "last.png", target)
		} else {
			file, err := os.Open(final)
			require.NoError(t, err)
			_, err = png.Decode(file)
			file.Close()
			assert.NoError(t, err)
		}
	}

	_, err = os.Stat(filepath.Join(dir, "0123.png"))
	assert.True(t, os.IsNotExist(err))
}
