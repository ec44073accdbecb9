// Package conv computes the linear auto-correlation of analysis frames.
//
// [AutoCorrelate] goes through a zero-padded FFT from the shared plan cache;
// [AutoCorrelateDirect] evaluates the lag sums with vectorised dot products
// and wins for short frames.
package conv
