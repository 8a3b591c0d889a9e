// Package qr renders verify links into scannable PNG files. The
// renderer is stateless apart from its output directory; nothing in
// the core ever reads the images back.
package qr

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Renderer writes QR PNGs into a directory with unique file names.
type Renderer struct {
	dir string
}

// NewRenderer ensures the output directory exists.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Renderer{dir: dir}, nil
}

// Render encodes data into a PNG and returns the absolute path of the
// written file.
func (r *Renderer) Render(data string) (string, error) {
	name := uuid.New().String() + ".png"
	path := filepath.Join(r.dir, name)
	if err := qrcode.WriteFile(data, qrcode.Medium, 512, path); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}
