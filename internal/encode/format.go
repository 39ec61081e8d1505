package encode

import (
	"fmt"
)

// PixelRGB24 is packed 8-bit RGB, the only pixel format produced by the
// renderer.
const PixelRGB24 = "rgb24"

// Format describes every frame of one encoder session.
type Format struct {
	Width       int
	Height      int
	FPS         int
	PixelFormat string
}

// NewFormat returns an rgb24 format.
func NewFormat(width, height, fps int) Format {
	return Format{Width: width, Height: height, FPS: fps, PixelFormat: PixelRGB24}
}

func (f Format) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if f.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", f.FPS)
	}
	if f.PixelFormat != "" && f.PixelFormat != PixelRGB24 {
		return fmt.Errorf("unsupported pixel format %q", f.PixelFormat)
	}
	return nil
}

// FrameSize is the number of bytes in one frame.
func (f Format) FrameSize() int {
	return f.Width * f.Height * 3
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%d@%d %s", f.Width, f.Height, f.FPS, f.pixelFormat())
}

func (f Format) pixelFormat() string {
	if f.PixelFormat == "" {
		return PixelRGB24
	}
	return f.PixelFormat
}

// FlipRows copies src into dst with the row order reversed. Both must hold
// height rows of width RGB pixels.
func FlipRows(dst, src []byte, width, height int) {
	stride := width * 3
	for y := 0; y < height; y++ {
		copy(dst[y*stride:(y+1)*stride], src[(height-1-y)*stride:(height-y)*stride])
	}
}
