package audiofile

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fredericksilva/splat/frag"
)

const (
	formatSAF = "saf"
	safMagic  = "Splat!"
	// safFormat is the newest container revision this reader accepts.
	safFormat = 1
)

// openSAF reads the two-line SAF header and the native float64 payload.
// It declines when the magic line does not match.
func openSAF(r io.ReadSeeker) (*frag.Fragment, error) {
	br := bufio.NewReader(r)

	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimRight(magic, "\r\n") != safMagic {
		return nil, nil
	}

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("saf header: %w", err)
	}
	h, err := parseSAFHeader(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return nil, err
	}

	if h.format > safFormat {
		return nil, fmt.Errorf("%w: format %d, newest supported is %d",
			ErrFormatVersion, h.format, safFormat)
	}
	if h.precision != frag.SamplePrecision {
		return nil, fmt.Errorf("%w: %d-bit payload, engine uses %d-bit",
			ErrPrecisionMismatch, h.precision, frag.SamplePrecision)
	}

	f, err := frag.New(h.channels, h.rate, frag.WithLength(h.length))
	if err != nil {
		return nil, err
	}

	frameSize := h.channels * frag.SamplePrecision / 8
	chunkFrames := payloadChunk / frameSize
	if chunkFrames < 1 {
		chunkFrames = 1
	}
	buf := make([]byte, chunkFrames*frameSize)

	for at := 0; at < h.length; {
		n := chunkFrames
		if left := h.length - at; left < n {
			n = left
		}
		raw := buf[:n*frameSize]
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("saf payload: %w", err)
		}
		if err := f.ImportNative(raw, at); err != nil {
			return nil, err
		}
		at += n
	}

	sum, err := f.MD5()
	if err != nil {
		return nil, err
	}
	if sum != h.md5 {
		return nil, fmt.Errorf("%w: header %s, payload %s", ErrHashMismatch, h.md5, sum)
	}
	return f, nil
}

type safHeader struct {
	rate      int
	channels  int
	length    int
	precision int
	format    int
	md5       string
}

// parseSAFHeader decodes the space-separated key=value attribute line.
// Unknown keys are ignored for forward compatibility within a format.
func parseSAFHeader(line string) (*safHeader, error) {
	attrs := make(map[string]string)
	for _, field := range strings.Fields(line) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("saf header attribute must be key=value: %q", field)
		}
		attrs[k] = v
	}

	h := &safHeader{}
	for _, want := range []struct {
		key string
		dst *int
	}{
		{"rate", &h.rate},
		{"channels", &h.channels},
		{"length", &h.length},
		{"precision", &h.precision},
		{"format", &h.format},
	} {
		v, ok := attrs[want.key]
		if !ok {
			return nil, fmt.Errorf("saf header is missing %q", want.key)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("saf header %q must be an integer: %q", want.key, v)
		}
		*want.dst = n
	}

	h.md5 = attrs["md5"]
	if h.md5 == "" {
		return nil, fmt.Errorf("saf header is missing %q", "md5")
	}
	if h.length < 0 {
		return nil, fmt.Errorf("saf header length must be >= 0: %d", h.length)
	}
	return h, nil
}

// saveSAF writes the magic line, the attribute line and the native payload.
func saveSAF(w io.WriteSeeker, f *frag.Fragment, start, end int, _ *config) error {
	quant, err := f.AsBytesRange(2, start, end)
	if err != nil {
		return err
	}
	digest := md5.Sum(quant)

	if _, err := fmt.Fprintf(w, "%s\n", safMagic); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "rate=%d channels=%d length=%d precision=%d format=%d version=%s build=%d md5=%s\n",
		f.Rate(), f.Channels(), end-start, frag.SamplePrecision, safFormat,
		Version, Build, hex.EncodeToString(digest[:]))
	if err != nil {
		return err
	}

	frameSize := f.Channels() * frag.SamplePrecision / 8
	chunkFrames := payloadChunk / frameSize
	if chunkFrames < 1 {
		chunkFrames = 1
	}
	for at := start; at < end; {
		n := at + chunkFrames
		if n > end {
			n = end
		}
		raw, err := f.NativeBytes(at, n)
		if err != nil {
			return err
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
		at = n
	}
	return nil
}
