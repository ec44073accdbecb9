// Package spectrum produces the dB magnitude spectra consumed by pitch and
// formant estimation.
//
// [Analyzer] mirrors a streaming audio analyser: samples are written into a
// ring of FFTSize samples, and each call to [Analyzer.Magnitudes] windows
// the ring, transforms it, smooths the linear magnitudes against the
// previous call, and reports dB levels floored at MinDB. [Transform] is the
// one-shot, unsmoothed variant for a single frame.
package spectrum
