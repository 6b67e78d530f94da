// Package archive writes processed SIRI messages to disk, zstd-compressed,
// for after-the-fact inspection. It is best effort: archive failures never
// block or fail message processing.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bratomyr/ukur/siri"
)

// Archive persists one message per file.
type Archive interface {
	WriteJourney(j *siri.EstimatedVehicleJourney) error
}

// FileArchive writes files named <timestamp>-<seq>-<journeyref>.xml.zst.
type FileArchive struct {
	dir string
	seq atomic.Uint64
}

// NewFileArchive creates dir when missing.
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir %q: %w", dir, err)
	}
	return &FileArchive{dir: dir}, nil
}

func (a *FileArchive) WriteJourney(j *siri.EstimatedVehicleJourney) error {
	data, err := siri.Marshal(j)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%06d-%s.xml.zst",
		time.Now().UTC().Format("20060102T150405"),
		a.seq.Add(1),
		safeName(j.JourneyRef()))
	return a.write(filepath.Join(a.dir, name), data)
}

func (a *FileArchive) write(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("write archive file: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close zstd stream: %w", err)
	}
	return f.Close()
}

func safeName(ref string) string {
	if ref == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, ref)
}

// Disabled is the Archive used when storeMessagesToFile is off.
type Disabled struct{}

func (Disabled) WriteJourney(*siri.EstimatedVehicleJourney) error { return nil }
