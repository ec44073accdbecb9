package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/signal"
	"github.com/TomokaItou/voice-training/internal/audiofile"
)

type synthOptions struct {
	freq      float64
	glideTo   float64
	dur       time.Duration
	rate      int
	amp       float64
	harmonics []float64
	noise     float64
	seed      int64
}

func runSynth(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o synthOptions
	var harmonics string
	fs.Float64Var(&o.freq, "freq", 150, "fundamental frequency in Hz")
	fs.Float64Var(&o.glideTo, "glide-to", 0, "end frequency of a linear glide in Hz (0 holds -freq)")
	fs.DurationVar(&o.dur, "dur", time.Second, "tone length")
	fs.IntVar(&o.rate, "rate", 16000, "sample rate in Hz")
	fs.Float64Var(&o.amp, "amp", 0.5, "peak amplitude in (0, 1]")
	fs.StringVar(&harmonics, "harmonics", "", "comma separated overtone weights relative to the fundamental, e.g. 0.5,0.25")
	fs.Float64Var(&o.noise, "noise", 0, "white noise amplitude added to the tone")
	fs.Int64Var(&o.seed, "seed", 1, "noise seed")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pitchtrace synth [flags] out.wav\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("synth needs exactly one output file")
	}

	var err error
	if o.harmonics, err = parseWeights(harmonics); err != nil {
		return err
	}
	samples, err := synthesize(o)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	if err := audiofile.WriteWAVFile(path, samples, o.rate); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%v, %d Hz, %d samples)\n", path, o.dur, o.rate, len(samples))
	return nil
}

func synthesize(o synthOptions) ([]float64, error) {
	if o.amp <= 0 || o.amp > 1 {
		return nil, fmt.Errorf("amplitude must be in (0, 1]: %g", o.amp)
	}
	gen := signal.NewGenerator(
		[]core.ProcessorOption{core.WithSampleRate(float64(o.rate))},
		signal.WithSeed(o.seed),
	)
	n := gen.Samples(o.dur.Seconds())

	var (
		tone []float64
		err  error
	)
	if o.glideTo > 0 {
		tone, err = gen.Glide(o.freq, o.glideTo, o.amp, n)
	} else {
		tone, err = gen.Harmonic(o.freq, o.amp, o.harmonics, n)
	}
	if err != nil {
		return nil, err
	}

	if o.noise > 0 {
		noise, err := gen.WhiteNoise(o.noise, n)
		if err != nil {
			return nil, err
		}
		signal.Mix(tone, noise, 1)
		if tone, err = signal.Normalize(tone, o.amp); err != nil {
			return nil, err
		}
	}
	return tone, nil
}

func parseWeights(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("harmonic weight %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
