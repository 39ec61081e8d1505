package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// Images writes every frame to its own PNG file, top row first.
type Images struct {
	*Stream
	w *pngWriter
}

// OpenImages creates dir if needed and names frames frame_00000.png and up.
func OpenImages(dir string, format Format) (*Images, error) {
	if err := format.Validate(); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: err}
	}
	w := &pngWriter{
		dir:    dir,
		format: format,
		img:    image.NewRGBA(image.Rect(0, 0, format.Width, format.Height)),
		rows:   make([]byte, format.FrameSize()),
	}
	return &Images{Stream: NewStream(w, format, nil), w: w}, nil
}

// Path returns the file name of frame i.
func (im *Images) Path(i int) string {
	return im.w.path(i)
}

type pngWriter struct {
	dir    string
	format Format
	img    *image.RGBA
	rows   []byte
	next   int
	buf    bytes.Buffer
}

func (w *pngWriter) path(i int) string {
	return filepath.Join(w.dir, fmt.Sprintf("frame_%05d.png", i))
}

func (w *pngWriter) Write(frame []byte) (int, error) {
	FlipRows(w.rows, frame, w.format.Width, w.format.Height)
	for i, j := 0, 0; i < len(w.rows); i, j = i+3, j+4 {
		w.img.Pix[j] = w.rows[i]
		w.img.Pix[j+1] = w.rows[i+1]
		w.img.Pix[j+2] = w.rows[i+2]
		w.img.Pix[j+3] = 255
	}

	w.buf.Reset()
	if err := png.Encode(&w.buf, w.img); err != nil {
		return 0, err
	}
	if err := os.WriteFile(w.path(w.next), w.buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	w.next++
	return len(frame), nil
}
