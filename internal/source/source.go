// Package source fetches the PostgreSQL log into memory, either from the local
// filesystem or from the database host over SSH.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

// Source supplies the full contents of a log file.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	String() string
}

// FileSource reads logs from a filesystem.
type FileSource struct {
	Fs afero.Fs
}

// NewFileSource returns a FileSource on the host filesystem.
func NewFileSource() *FileSource {
	return &FileSource{Fs: afero.NewOsFs()}
}

// Fetch reads the file at p, decompressing rotated logs.
func (s *FileSource) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := afero.ReadFile(s.Fs, p)
	if err != nil {
		return nil, err
	}
	return decode(p, raw)
}

func (s *FileSource) String() string {
	return "local"
}

// decode unpacks raw according to the file extension of p.
func decode(p string, raw []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)
	switch strings.ToLower(path.Ext(p)) {
	case ".gz":
		var zr *gzip.Reader
		zr, err = gzip.NewReader(bytes.NewReader(raw))
		if err == nil {
			defer zr.Close()
			r = zr
		}
	case ".xz":
		r, err = xz.NewReader(bytes.NewReader(raw))
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open compressed log %s: %w", p, err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", p, err)
	}
	return out, nil
}
