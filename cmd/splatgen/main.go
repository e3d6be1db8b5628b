// Command splatgen renders a short demo piece and writes it to an audio
// file. The output format follows the file-name extension (.wav or .saf)
// unless -format forces one.
//
// Usage:
//
//	splatgen [flags]
//
// Examples:
//
//	splatgen -out dew_drop.wav
//	splatgen -rate 44100 -out dew_drop.saf
//	splatgen -channels 1 -format saf -out piece.dat
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/fredericksilva/splat/audiofile"
	"github.com/fredericksilva/splat/curve"
	"github.com/fredericksilva/splat/filters"
	"github.com/fredericksilva/splat/frag"
	"github.com/fredericksilva/splat/gen"
	"github.com/fredericksilva/splat/interp"
)

type note struct {
	start float64
	end   float64
	freq  float64
}

// A small pentatonic phrase.
var phrase = []note{
	{0.0, 1.2, 220.00},
	{0.4, 1.6, 293.66},
	{0.8, 2.0, 329.63},
	{1.2, 2.6, 440.00},
	{1.8, 3.4, 392.00},
	{2.4, 4.0, 293.66},
}

func main() {
	rate := flag.Int("rate", 48000, "sample rate in Hz")
	channels := flag.Int("channels", 2, "channel count (1 to 16)")
	out := flag.String("out", "dew_drop.wav", "output file path")
	format := flag.String("format", "", "force output format (wav or saf) instead of using the extension")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: splatgen [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a short demo piece to a WAV or SAF file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  splatgen -out dew_drop.wav\n")
		fmt.Fprintf(os.Stderr, "  splatgen -rate 44100 -out dew_drop.saf\n")
	}
	flag.Parse()

	master, err := render(*rate, *channels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var opts []audiofile.Option
	if *format != "" {
		opts = append(opts, audiofile.WithFormat(*format))
	}
	if err := audiofile.Save(master, *out, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sum, err := master.MD5()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d Hz, %d channels, %.2f s, md5 %s\n",
		*out, master.Rate(), master.Channels(), master.Duration(), sum)
}

func render(rate, channels int) (*frag.Fragment, error) {
	master, err := frag.New(channels, rate)
	if err != nil {
		return nil, err
	}

	env, err := filters.DecEnvelope(0.35, 1.2)
	if err != nil {
		return nil, err
	}

	g := gen.NewOvertones(master, env)
	if err := g.DecExp(1.8, 6); err != nil {
		return nil, err
	}

	// A slow amplitude swell shared by every note.
	swell, err := interp.NewSpline([]interp.Point{
		{X: 0, Y: -9},
		{X: 2, Y: -3},
		{X: 4, Y: -12, Slope: interp.Slope(0)},
	})
	if err != nil {
		return nil, err
	}
	amp := swell.Curve(rate)

	for _, n := range phrase {
		// Gentle vibrato around the note's pitch.
		freq := curve.FromTimeFunc(func(t float64) float64 {
			return n.freq * (1 + 0.004*math.Sin(2*math.Pi*5*t))
		}, rate)
		if err := g.Run(n.start, n.end, freq, amp); err != nil {
			return nil, err
		}
	}

	room, err := filters.Reverb([]filters.Delay{
		{Time: 0.023, GainDB: -9},
		{Time: 0.047, GainDB: -12},
		{Time: 0.089, GainDB: -15},
	}, 0.2, 2.0, 1)
	if err != nil {
		return nil, err
	}
	if err := room(master); err != nil {
		return nil, err
	}

	master.Normalize(-0.5)
	return master, nil
}
