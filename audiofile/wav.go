package audiofile

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/fredericksilva/splat/frag"
)

const formatWAV = "wav"

// openWAV decodes an integer PCM RIFF/WAVE stream in bounded chunks.
// It declines when the stream is not a valid WAV file.
func openWAV(r io.ReadSeeker) (*frag.Fragment, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, nil
	}
	// IsValidFile consumes the stream; decode from a fresh position.
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	dec = wav.NewDecoder(r)
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wav pcm chunk: %w", err)
	}

	format := dec.Format()
	bitDepth := int(dec.SampleBitDepth())
	if bitDepth == 0 {
		return nil, fmt.Errorf("wav bit depth must be declared in the header")
	}
	channels := format.NumChannels
	rate := format.SampleRate

	f, err := frag.New(channels, rate)
	if err != nil {
		return nil, err
	}

	chunkFrames := payloadChunk / (channels * bitDepth / 8)
	if chunkFrames < 1 {
		chunkFrames = 1
	}
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, chunkFrames*channels),
		SourceBitDepth: bitDepth,
	}

	at := 0
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("wav payload: %w", err)
		}
		if n == 0 {
			break
		}
		if err := f.ImportInts(buf.Data[:n], at, bitDepth, rate, channels); err != nil {
			return nil, err
		}
		at += n / channels
	}
	return f, nil
}

// saveWAV writes integer PCM frames quantized to the configured sample
// width, 2 bytes per sample unless overridden. Quantization rounds to the
// nearest step on the same full scale the reader divides by, keeping the
// round-trip error within half a step.
func saveWAV(w io.WriteSeeker, f *frag.Fragment, start, end int, cfg *config) error {
	bitDepth := cfg.sampleWidth * 8
	enc := wav.NewEncoder(w, f.Rate(), bitDepth, f.Channels(), 1)

	fullScale := float64(int(1) << (bitDepth - 1))
	max := fullScale - 1
	chunkFrames := payloadChunk / (f.Channels() * cfg.sampleWidth)
	if chunkFrames < 1 {
		chunkFrames = 1
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels(), SampleRate: f.Rate()},
		SourceBitDepth: bitDepth,
	}
	data := make([]int, chunkFrames*f.Channels())

	for at := start; at < end; {
		n := at + chunkFrames
		if n > end {
			n = end
		}
		pos := 0
		for i := at; i < n; i++ {
			for c := 0; c < f.Channels(); c++ {
				s := math.Round(frag.Clamp(f.Channel(c)[i], -1, 1) * fullScale)
				if s > max {
					s = max
				}
				data[pos] = int(s)
				pos++
			}
		}
		buf.Data = data[:pos]
		if err := enc.Write(buf); err != nil {
			return err
		}
		at = n
	}
	return enc.Close()
}
