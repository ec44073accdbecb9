package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/TomokaItou/voice-training/dsp/core"
)

// Generator creates deterministic test signals at a fixed sample rate.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed used for noise.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a generator. Processor options set the sample rate.
func NewGenerator(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Samples returns the number of samples covering seconds at the generator
// sample rate.
func (g *Generator) Samples(seconds float64) int {
	return int(math.Round(seconds * g.cfg.SampleRate))
}

func (g *Generator) check(name string, samples int) error {
	if samples <= 0 {
		return fmt.Errorf("%s samples must be > 0: %d", name, samples)
	}
	if g.cfg.SampleRate <= 0 {
		return fmt.Errorf("%s sample rate must be > 0: %f", name, g.cfg.SampleRate)
	}
	return nil
}

// Sine generates a pure tone.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	return g.Harmonic(freqHz, amplitude, nil, samples)
}

// Harmonic generates f0 plus overtones. weights[k] is the amplitude of
// harmonic k+2 relative to the fundamental. The sum is scaled so its peak
// never exceeds amplitude.
func (g *Generator) Harmonic(f0, amplitude float64, weights []float64, samples int) ([]float64, error) {
	if err := g.check("harmonic", samples); err != nil {
		return nil, err
	}
	if f0 <= 0 || f0 >= g.cfg.Nyquist() {
		return nil, fmt.Errorf("harmonic f0 must be in (0, %g): %g", g.cfg.Nyquist(), f0)
	}

	norm := 1.0
	for _, w := range weights {
		norm += math.Abs(w)
	}

	out := make([]float64, samples)
	step := 2 * math.Pi * f0 / g.cfg.SampleRate
	for i := range out {
		phase := step * float64(i)
		v := math.Sin(phase)
		for k, w := range weights {
			v += w * math.Sin(float64(k+2)*phase)
		}
		out[i] = amplitude * v / norm
	}
	return out, nil
}

// Glide generates a tone whose frequency moves linearly from startHz to
// endHz over the signal. Phase is accumulated so the waveform stays
// continuous.
func (g *Generator) Glide(startHz, endHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.check("glide", samples); err != nil {
		return nil, err
	}
	if startHz <= 0 || endHz <= 0 {
		return nil, fmt.Errorf("glide frequencies must be > 0: %g, %g", startHz, endHz)
	}

	out := make([]float64, samples)
	phase := 0.0
	for i := range out {
		out[i] = amplitude * math.Sin(phase)
		t := float64(i) / float64(samples)
		hz := startHz + (endHz-startHz)*t
		phase += 2 * math.Pi * hz / g.cfg.SampleRate
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Mix adds src into dst scaled by gain. Samples of src beyond len(dst) are
// dropped.
func Mix(dst, src []float64, gain float64) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] += gain * src[i]
	}
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		maxAbs = max(maxAbs, math.Abs(v))
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}
