// Package pitch estimates the fundamental frequency of short audio frames
// and stabilizes the resulting stream into a contour suitable for display.
//
// Three estimators are available:
//
//   - [AMDF]: average magnitude difference over sample offsets.
//   - [NormXCorr]: normalized autocorrelation computed with an FFT, choosing
//     the first strong peak rather than the global maximum.
//   - [HPS]: harmonic product spectrum over a dB magnitude spectrum.
//
// Every estimator applies the same energy gate, so silent frames never carry
// a pitch. [Stabilizer] then applies onset debouncing, a rolling median,
// octave correction, jump confirmation, exponential smoothing, and a short
// hold before releasing to unvoiced.
package pitch
