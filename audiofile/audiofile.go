package audiofile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fredericksilva/splat/frag"
)

// Engine identity recorded in SAF headers.
const (
	Version = "1.0"
	Build   = 1
)

var (
	// ErrUnsupportedFormat is returned when no reader or writer recognizes
	// the requested format.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	// ErrFormatVersion is returned for SAF files newer than this reader.
	ErrFormatVersion = errors.New("audiofile: unsupported container version")
	// ErrPrecisionMismatch is returned for SAF payloads whose sample
	// precision differs from the engine's.
	ErrPrecisionMismatch = errors.New("audiofile: sample precision mismatch")
	// ErrHashMismatch is returned when an SAF payload does not match the
	// content hash declared in its header.
	ErrHashMismatch = errors.New("audiofile: content hash mismatch")
)

// payloadChunk bounds the bytes moved per read or write.
const payloadChunk = 64 * 1024

type config struct {
	format      string
	sampleWidth int
	start       float64
	end         float64
}

// Option configures Open and Save.
type Option func(*config) error

func defaultConfig() *config {
	return &config{sampleWidth: 2, end: math.Inf(1)}
}

// WithFormat forces the file format by name ("wav" or "saf") instead of
// inferring it from the file-name extension.
func WithFormat(name string) Option {
	return func(c *config) error {
		name = strings.ToLower(name)
		if name != formatWAV && name != formatSAF {
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
		}
		c.format = name
		return nil
	}
}

// WithSampleWidth sets the WAV sample width in bytes. The default is 2.
func WithSampleWidth(bytes int) Option {
	return func(c *config) error {
		if bytes < 1 || bytes > 4 {
			return fmt.Errorf("audio file sample width must be 1 to 4 bytes: %d", bytes)
		}
		c.sampleWidth = bytes
		return nil
	}
}

// WithRange restricts Save to the interval [start, end) in seconds.
func WithRange(start, end float64) Option {
	return func(c *config) error {
		if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) {
			return fmt.Errorf("audio file range must be finite: [%f, %f)", start, end)
		}
		if start < 0 || end < start {
			return fmt.Errorf("audio file range must be ordered and >= 0: [%f, %f)", start, end)
		}
		c.start, c.end = start, end
		return nil
	}
}

// An opener inspects the stream and returns a populated fragment, or
// (nil, nil) to decline so the next opener can try.
type opener struct {
	name string
	open func(r io.ReadSeeker) (*frag.Fragment, error)
}

// Readers are tried in order; extension hints only reorder them.
var openers = []opener{
	{formatSAF, openSAF},
	{formatWAV, openWAV},
}

type saver func(w io.WriteSeeker, f *frag.Fragment, start, end int, cfg *config) error

var savers = map[string]saver{
	formatWAV: saveWAV,
	formatSAF: saveSAF,
}

// Open reads path into a new fragment. Without an explicit format the
// file-name extension is used as a hint, then every known reader gets a
// chance to recognize the content.
func Open(path string, opts ...Option) (*frag.Fragment, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if cfg.format != "" {
		for _, op := range openers {
			if op.name != cfg.format {
				continue
			}
			f, err := op.open(file)
			if err != nil {
				return nil, err
			}
			if f == nil {
				return nil, fmt.Errorf("%w: %s is not a %s file", ErrUnsupportedFormat, path, op.name)
			}
			return f, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, cfg.format)
	}

	for _, op := range orderByExtension(path) {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		f, err := op.open(file)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Save writes f (or the sub-range selected with WithRange) to path in the
// format named explicitly or by the file-name extension.
func Save(f *frag.Fragment, path string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return err
		}
	}

	name := cfg.format
	if name == "" {
		name = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	save, ok := savers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}

	start, end, err := sampleRange(f, cfg)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := save(file, f, start, end, cfg); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// orderByExtension moves the opener matching the extension to the front.
func orderByExtension(path string) []opener {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	ordered := make([]opener, 0, len(openers))
	for _, op := range openers {
		if op.name == ext {
			ordered = append(ordered, op)
		}
	}
	for _, op := range openers {
		if op.name != ext {
			ordered = append(ordered, op)
		}
	}
	return ordered
}

func sampleRange(f *frag.Fragment, cfg *config) (int, int, error) {
	start := f.S2N(cfg.start)
	end := f.Len()
	if !math.IsInf(cfg.end, 1) {
		end = f.S2N(cfg.end)
	}
	if start > f.Len() || end > f.Len() || start > end {
		return 0, 0, fmt.Errorf("audio file range must be within [0, %f): [%f, %f)",
			f.Duration(), cfg.start, cfg.end)
	}
	return start, end, nil
}
