// Package formant estimates the first two vocal-tract resonances from a dB
// magnitude spectrum and stabilizes them over time.
//
// [Estimator] smooths the spectrum with a moving average about 120 Hz wide
// and takes the strongest bin in the F1 and F2 ranges. [Stabilizer] gates
// pairs with [Config.ValidPair], then applies a rolling median, a per-update
// jump limit, and exponential smoothing whose rate depends on elapsed time
// rather than on how often it is called.
package formant
